package testutil

// FixedRunIDs returns the same run id every time.
//
// Journal runs started with a FixedRunIDs generator get a predictable id, so
// golden output that includes the run id stays byte-identical.
//
// Thread-safety: FixedRunIDs is stateless and safe for concurrent use.
type FixedRunIDs struct {
	id string
}

// NewFixedRunIDs creates a generator returning id.
// If id is empty, Generate returns "test-run-default".
func NewFixedRunIDs(id string) *FixedRunIDs {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDs{id: id}
}

// Generate returns the fixed run id.
//
// Implements store.RunIDGenerator.
func (g *FixedRunIDs) Generate() string {
	return g.id
}
