package documents

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo. Uniqueness of (owner, docType) is checked
// under the write lock, matching the partial unique index in Postgres.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]Document)}
}

func (r *MemoryRepo) FindByOwnerAndType(ctx context.Context, ownerID string, docType DocType) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID && doc.DocType == docType {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

func (r *MemoryRepo) Insert(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.docs {
		if existing.OwnerID == doc.OwnerID && existing.DocType == doc.DocType {
			return ErrDuplicateType
		}
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Document, 0)
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, ownerID, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) UpdateFile(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.docs[doc.ID]
	if !ok || existing.OwnerID != doc.OwnerID {
		return ErrNotFound
	}
	existing.FileName = doc.FileName
	existing.FileType = doc.FileType
	existing.FileSize = doc.FileSize
	existing.FilePath = doc.FilePath
	existing.DownloadURL = doc.DownloadURL
	existing.PageCount = doc.PageCount
	existing.LastUpdated = doc.LastUpdated
	if existing.LastUpdated.IsZero() {
		existing.LastUpdated = time.Now().UTC()
	}
	r.docs[doc.ID] = existing
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.docs, id)
	return nil
}
