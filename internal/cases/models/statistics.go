package models

// Statistics summarizes the cases of one scope. The counts come from
// independent queries and are not a consistent snapshot.
type Statistics struct {
	Total        int64            `json:"total"`
	ByStatus     map[Status]int64 `json:"by_status"`
	HighPriority int64            `json:"high_priority"`
}

func (s Statistics) Open() int64       { return s.ByStatus[StatusOpen] }
func (s Statistics) InProgress() int64 { return s.ByStatus[StatusInProgress] }
func (s Statistics) Closed() int64     { return s.ByStatus[StatusClosed] }
