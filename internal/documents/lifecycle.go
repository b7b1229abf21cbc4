package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"securelink-backend/internal/shared/events"
	"securelink-backend/internal/shared/metrics"
	"securelink-backend/internal/shared/storage/object"
	"securelink-backend/internal/shared/telemetry"
)

// Delete removes the blob and then the record. A blob that cannot be
// removed aborts with the record untouched; a blob already gone counts as
// removed. A record that cannot be removed afterwards is a PartialFailureError.
func (s *Service) Delete(ctx context.Context, ownerID, docID string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if strings.TrimSpace(ownerID) == "" {
		return ErrAuthRequired
	}
	doc, err := s.Repo.Get(ctx, ownerID, docID)
	if err != nil {
		return err
	}

	if err := s.removeBlob(ctx, doc.FilePath); err != nil {
		return fmt.Errorf("delete blob %s: %w", doc.FilePath, err)
	}
	if err := s.Repo.Delete(ctx, ownerID, docID); err != nil {
		metrics.IncPartialFailure()
		return s.partial("delete", "metadata", doc, err)
	}

	metrics.IncDeleted()
	events.Emit(ctx, s.Events, events.Event{
		Type:       events.DocumentDeleted,
		DocumentID: doc.ID,
		OwnerID:    ownerID,
		DocType:    string(doc.DocType),
		FilePath:   doc.FilePath,
	})
	return nil
}

// Replace swaps the file behind an existing record. The old blob goes first;
// if that fails nothing else happens. Failures after that point leave the
// record pointing at a removed blob and are reported as PartialFailureError.
// On success the owner's listing is re-fetched so URLs reflect the new path.
func (s *Service) Replace(ctx context.Context, ownerID, docID string, file *FileInput, progress object.ProgressFunc) (ListResult, error) {
	if err := validateFile(file); err != nil {
		return ListResult{}, err
	}
	if strings.TrimSpace(ownerID) == "" {
		return ListResult{}, ErrAuthRequired
	}
	doc, err := s.Repo.Get(ctx, ownerID, docID)
	if err != nil {
		return ListResult{}, err
	}

	if err := s.removeBlob(ctx, doc.FilePath); err != nil {
		return ListResult{}, fmt.Errorf("delete old blob %s: %w", doc.FilePath, err)
	}

	now := s.now().UTC()
	path := BuildPath(ownerID, file.Name, now)
	if err := s.writeBlob(ctx, path, file, progress); err != nil {
		metrics.IncPartialFailure()
		return ListResult{}, s.partial("replace", "write_blob", doc, err)
	}

	doc.FileName = file.Name
	doc.FileType = normalizeContentType(file.ContentType)
	doc.FileSize = fileSize(file)
	doc.FilePath = path
	doc.DownloadURL = s.cacheURL(ctx, path)
	doc.PageCount = inspectPageCount(file.ContentType, file.Content)
	doc.LastUpdated = now
	if err := s.Repo.UpdateFile(ctx, doc); err != nil {
		metrics.IncPartialFailure()
		return ListResult{}, s.partial("replace", "metadata", doc, err)
	}

	metrics.IncReplaced()
	metrics.ObserveUploadBytes(doc.FileSize)
	events.Emit(ctx, s.Events, events.Event{
		Type:       events.DocumentReplaced,
		DocumentID: doc.ID,
		OwnerID:    ownerID,
		DocType:    string(doc.DocType),
		FilePath:   path,
		FileSize:   doc.FileSize,
		At:         now,
	})
	return s.List(ctx, ownerID)
}

// Share turns an already resolved document into a share link.
func Share(doc ListedDocument) (ShareLink, error) {
	if strings.TrimSpace(doc.URL) == "" {
		return ShareLink{}, ErrNoDownloadURL
	}
	return ShareLink{URL: doc.URL, FileName: doc.FileName, DocType: doc.DocType}, nil
}

// ShareByID resolves one record the same way List does and shares it.
func (s *Service) ShareByID(ctx context.Context, ownerID, docID string) (ShareLink, error) {
	listed, err := s.Resolved(ctx, ownerID, docID)
	if err != nil {
		return ShareLink{}, err
	}
	return Share(listed)
}

// Resolved loads one of the owner's records with a fresh URL. A record whose
// blob cannot be resolved comes back without a URL.
func (s *Service) Resolved(ctx context.Context, ownerID, docID string) (ListedDocument, error) {
	if strings.TrimSpace(ownerID) == "" {
		return ListedDocument{}, ErrAuthRequired
	}
	doc, err := s.Repo.Get(ctx, ownerID, docID)
	if err != nil {
		return ListedDocument{}, err
	}
	listed, err := s.resolve(ctx, doc)
	if err != nil {
		telemetry.Warn("documents.url_resolve_skipped", map[string]any{
			"owner_id":    ownerID,
			"document_id": doc.ID,
			"error":       err,
		})
		return ListedDocument{Document: doc}, nil
	}
	return listed, nil
}

func (s *Service) removeBlob(ctx context.Context, path string) error {
	err := s.Store.Delete(ctx, path)
	if err == nil || errors.Is(err, object.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) partial(op, step string, doc Document, err error) error {
	perr := &PartialFailureError{Op: op, Step: step, FilePath: doc.FilePath, Err: err}
	telemetry.Error("documents.partial_failure", map[string]any{
		"op":          op,
		"step":        step,
		"owner_id":    doc.OwnerID,
		"document_id": doc.ID,
		"file_path":   doc.FilePath,
		"error":       err,
	})
	return perr
}
