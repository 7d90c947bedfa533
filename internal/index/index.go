package index

import "github.com/starford/ehwaz/internal/models"

// AssetIndex defines the interface for asset indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type AssetIndex interface {
	UpsertAsset(r AssetRow) error
	DeleteAsset(scope models.Scope, rootID, subfolder, filename string) error
	GetAsset(scope models.Scope, rootID, subfolder, filename string) (*AssetRow, error)
	ListAssets(limit, offset int, scope models.Scope, kind models.Kind) ([]AssetRow, int, error)
	SearchAssets(query string, limit int) ([]AssetRow, error)
	AllChecksums(scope models.Scope, rootID string) (map[string]string, error)
	Close() error
}

// Verify *DB satisfies AssetIndex at compile time.
var _ AssetIndex = (*DB)(nil)
