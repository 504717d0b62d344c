package kernel

// maxRRSweeps bounds the countdown scan. A countdown never exceeds one
// byte, so some candidate always reaches zero within 0xFF sweeps of the
// eligible set.
const maxRRSweeps = 0x100

// selectRR scans the task table circularly starting after fromIdx,
// applying the weighted round-robin countdown to each ready aperiodic
// candidate in turn until one candidate's countdown reaches zero. That
// candidate is selected, its countdown reloaded from its configured
// weight, and its table position returned as the new cursor.
func (k *Kernel) selectRR(fromIdx int) (*Task, int, bool) {
	n := k.table.len()
	if n == 0 {
		return nil, fromIdx, false
	}

	pos := fromIdx

	for i := 0; i < n*maxRRSweeps; i++ {
		pos++
		candidate := k.table.at(pos)

		if !eligibleForRR(candidate) {
			continue
		}

		remaining := candidate.countdown()
		if remaining > 0 {
			remaining--
		}

		if remaining == 0 {
			candidate.setCountdown(uint16(candidate.reloadWeight()))

			return candidate, k.table.indexOf(candidate.id), true
		}

		candidate.setCountdown(remaining)
	}

	return nil, fromIdx, false
}

func eligibleForRR(t *Task) bool {
	if t.isPeriodic {
		return false
	}

	return t.state == StateReady || t.state == StateRunning
}
