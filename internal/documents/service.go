package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"securelink-backend/internal/shared/events"
	"securelink-backend/internal/shared/metrics"
	"securelink-backend/internal/shared/storage/object"
	"securelink-backend/internal/shared/telemetry"
)

const defaultResolveConcurrency = 8

// Service runs the document workflows against the metadata repo and blob store.
type Service struct {
	Repo   Repo
	Store  object.ObjectStore
	Events events.Publisher
	// ResolveConcurrency bounds parallel URL resolution while listing.
	ResolveConcurrency int

	now func() time.Time
}

func NewService(repo Repo, store object.ObjectStore, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.LogPublisher{}
	}
	return &Service{
		Repo:               repo,
		Store:              store,
		Events:             pub,
		ResolveConcurrency: defaultResolveConcurrency,
		now:                time.Now,
	}
}

// Upload validates the form, guards against a duplicate type and a path
// collision, writes the blob and only then inserts the metadata record.
// A metadata failure after the blob write leaves the blob in place.
func (s *Service) Upload(ctx context.Context, ownerID string, in UploadInput, progress object.ProgressFunc) (Document, error) {
	if err := validateUpload(ownerID, in); err != nil {
		metrics.IncUploadRejected()
		return Document{}, err
	}

	_, err := s.Repo.FindByOwnerAndType(ctx, ownerID, in.DocType)
	switch {
	case err == nil:
		metrics.IncUploadRejected()
		return Document{}, fmt.Errorf("%w: %s", ErrDuplicateType, in.DocType)
	case !errors.Is(err, ErrNotFound):
		return Document{}, fmt.Errorf("check existing %s: %w", in.DocType, err)
	}

	now := s.now().UTC()
	file := in.File
	path := BuildPath(ownerID, file.Name, now)
	if err := s.writeBlob(ctx, path, file, progress); err != nil {
		if errors.Is(err, ErrPathCollision) {
			metrics.IncUploadRejected()
		} else {
			metrics.IncUploadFailed()
		}
		return Document{}, err
	}

	doc := Document{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		DocType:     in.DocType,
		IDNumber:    in.IDNumber,
		FileName:    file.Name,
		FileType:    normalizeContentType(file.ContentType),
		FileSize:    fileSize(file),
		FilePath:    path,
		DownloadURL: s.cacheURL(ctx, path),
		Status:      StatusPendingReview,
		PageCount:   inspectPageCount(file.ContentType, file.Content),
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := s.Repo.Insert(ctx, doc); err != nil {
		metrics.IncUploadFailed()
		telemetry.Error("documents.orphan_blob", map[string]any{
			"owner_id":  ownerID,
			"doc_type":  string(in.DocType),
			"file_path": path,
			"error":     err,
		})
		if errors.Is(err, ErrDuplicateType) {
			return Document{}, fmt.Errorf("%w: %s", ErrDuplicateType, in.DocType)
		}
		return Document{}, fmt.Errorf("save metadata: %w", err)
	}

	metrics.IncUploaded()
	metrics.ObserveUploadBytes(doc.FileSize)
	events.Emit(ctx, s.Events, events.Event{
		Type:       events.DocumentUploaded,
		DocumentID: doc.ID,
		OwnerID:    ownerID,
		DocType:    string(doc.DocType),
		FilePath:   path,
		FileSize:   doc.FileSize,
		At:         now,
	})
	return doc, nil
}

// writeBlob probes the path and then writes with create-if-absent, so a
// backend with an atomic primitive also closes the probe/write window.
func (s *Service) writeBlob(ctx context.Context, path string, file *FileInput, progress object.ProgressFunc) error {
	exists, err := s.Store.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("probe blob %s: %w", path, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrPathCollision, path)
	}

	_, err = s.Store.Put(ctx, object.PutInput{
		Key:         path,
		ContentType: normalizeContentType(file.ContentType),
		Size:        fileSize(file),
		Body:        bytes.NewReader(file.Content),
		Progress:    progress,
		IfAbsent:    true,
	})
	if errors.Is(err, object.ErrAlreadyExists) {
		return fmt.Errorf("%w: %s", ErrPathCollision, path)
	}
	if err != nil {
		return fmt.Errorf("write blob %s: %w", path, err)
	}
	return nil
}

// cacheURL resolves a URL to persist alongside the record. Reads always
// resolve a fresh one, so a failure here is only logged.
func (s *Service) cacheURL(ctx context.Context, path string) string {
	url, err := s.Store.URL(ctx, path)
	if err != nil {
		telemetry.Warn("documents.url_cache_failed", map[string]any{"file_path": path, "error": err})
		return ""
	}
	return url
}
