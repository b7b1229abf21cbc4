package documents

import "context"

// Repo is the metadata store. Only non-deleted records are visible.
type Repo interface {
	// FindByOwnerAndType returns the owner's record of docType, or ErrNotFound.
	FindByOwnerAndType(ctx context.Context, ownerID string, docType DocType) (Document, error)
	// Insert stores a new record. A second live record for the same
	// (owner, docType) is refused with ErrDuplicateType.
	Insert(ctx context.Context, doc Document) error
	ListByOwner(ctx context.Context, ownerID string) ([]Document, error)
	Get(ctx context.Context, ownerID, id string) (Document, error)
	// UpdateFile rewrites the file fields and LastUpdated of an existing record.
	UpdateFile(ctx context.Context, doc Document) error
	Delete(ctx context.Context, ownerID, id string) error
}
