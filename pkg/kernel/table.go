package kernel

// table is the kernel's task table: an insertion-ordered collection of
// tasks with O(1) id lookup and circular traversal shared by both
// selectors. A slice plus an id index gives the same insertion-order,
// wrap-at-the-tail semantics as a circularly linked list of TCBs without
// pointer cycles.
type table struct {
	tasks  []*Task
	index  map[TaskID]int
	nextID TaskID
}

func newTable() *table {
	return &table{index: make(map[TaskID]int)}
}

// add appends task to the table, assigns it the next id, and returns it.
func (t *table) add(task *Task) TaskID {
	t.nextID++
	id := t.nextID
	task.id = id
	t.index[id] = len(t.tasks)
	t.tasks = append(t.tasks, task)

	return id
}

func (t *table) get(id TaskID) (*Task, bool) {
	idx, ok := t.index[id]
	if !ok {
		return nil, false
	}

	return t.tasks[idx], true
}

func (t *table) len() int { return len(t.tasks) }

// at returns the task at pos, wrapping circularly in either direction.
func (t *table) at(pos int) *Task {
	n := len(t.tasks)
	if n == 0 {
		return nil
	}

	pos %= n
	if pos < 0 {
		pos += n
	}

	return t.tasks[pos]
}

// indexOf returns the slice position of id, or -1 if it is not present.
func (t *table) indexOf(id TaskID) int {
	idx, ok := t.index[id]
	if !ok {
		return -1
	}

	return idx
}

func (t *table) all() []*Task { return t.tasks }
