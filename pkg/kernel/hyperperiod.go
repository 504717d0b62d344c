package kernel

// Report summarizes kernel activity across one completed hyperperiod.
type Report struct {
	DeadlineMisses int
	JobsRun        int
}

// computeHyperperiod returns the least common multiple of every periodic
// task's period using pairwise Euclidean reduction (lcm(a,b) = a*b/gcd(a,b)).
// Runs once, at Start. Returns (0, nil) when there are no periodic tasks.
func computeHyperperiod(tasks []*Task) (int, error) {
	result := 1
	haveAny := false

	for _, t := range tasks {
		if !t.isPeriodic {
			continue
		}

		haveAny = true

		g := gcd(result, t.period)
		reduced := result / g

		next := reduced * t.period
		if t.period != 0 && next/t.period != reduced {
			return 0, ErrHyperperiodOverflow
		}

		result = next
	}

	if !haveAny {
		return 0, nil
	}

	return result, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}

	if a < 0 {
		return -a
	}

	return a
}

// hyperperiodTick advances the report countdown by one tick. When it
// reaches zero it snapshots and resets the per-hyperperiod counters,
// returning the completed report and true. Must be called with k.mu held;
// the caller is responsible for delivering the report outside the lock.
func (k *Kernel) hyperperiodTick() (Report, bool) {
	if k.hyperperiod <= 0 {
		return Report{}, false
	}

	k.ticksUntilReport--
	if k.ticksUntilReport > 0 {
		return Report{}, false
	}

	report := Report{
		DeadlineMisses: k.deadlineMisses,
		JobsRun:        k.countJobsRun(),
	}

	k.ticksUntilReport = k.hyperperiod
	k.deadlineMisses = 0

	for _, t := range k.table.all() {
		t.hasRunInLCM = false
	}

	return report, true
}

func (k *Kernel) countJobsRun() int {
	n := 0

	for _, t := range k.table.all() {
		if t.hasRunInLCM {
			n++
		}
	}

	return n
}
