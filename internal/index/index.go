package index

import "github.com/starford/raido/internal/models"

// ItemIndex defines the interface for index operations. Consumers should
// depend on this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type ItemIndex interface {
	UpsertItem(row ItemRow, body string) error
	DeleteItem(itemType, id string) error
	ListItems(itemType string, opts ListOptions) ([]ItemRow, error)
	ItemsByTag(itemType, tag string) ([]ItemRow, error)
	AllKeys() (map[ItemKeyPair]struct{}, error)

	RegisterType(name string, base models.BaseCategory, description string) error
	DescribeType(name, description string) error
	RemoveType(name string) error
	ListTypes() ([]models.TypeDescriptor, error)
	TypeExists(name string) (bool, error)
	TypeBase(name string) (models.BaseCategory, error)

	NextID(itemType string) (int, error)
	ReconcileSequence(itemType string, maxObserved int) error
	SequenceValue(itemType string) (int, error)

	EnsureTags(names []string) error
	SearchTags(pattern string) ([]models.Tag, error)
	ListTags() ([]models.Tag, error)
	DeleteTag(name string) error

	StatusByName(name string) (*models.Status, error)
	ListStatuses() ([]models.Status, error)

	Search(query string, opts SearchOptions) ([]SearchHit, error)
	Suggest(prefix string, types []string, limit int) ([]string, error)
	Count(query string, types []string) (int, error)

	Close() error
}

// Verify *DB satisfies ItemIndex at compile time.
var _ ItemIndex = (*DB)(nil)
