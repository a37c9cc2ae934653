package index

// FixIndex defines the interface for fix indexing operations. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type FixIndex interface {
	UpsertFix(row FixRow, body string) error
	DeleteFix(slug string) error
	AllSlugs() (map[string]struct{}, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies FixIndex at compile time.
var _ FixIndex = (*DB)(nil)
