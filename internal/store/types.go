package store

// Cycle statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one journaled dispatcher session.
type Run struct {
	Seq  int64
	ID   string
	Name string
}

// Cycle is one journaled dispatch cycle.
type Cycle struct {
	RunID        string
	Cycle        int64
	ActionType   string
	PayloadHash  string
	Status       string
	ErrorKind    string
	ErrorMessage string
	StartedSeq   int64
	FinishedSeq  int64
}

// Step is one journaled handler or waitFor event within a cycle.
type Step struct {
	RunID        string
	Cycle        int64
	Seq          int64
	Kind         string
	Token        string
	Waiter       string
	ErrorKind    string
	ErrorMessage string
}
