package documents

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"securelink-backend/internal/shared/metrics"
	"securelink-backend/internal/shared/telemetry"
)

// List loads the owner's records and resolves a live URL for each one
// independently. Records whose URL cannot be resolved are dropped and
// counted; only the metadata query itself can fail the listing.
func (s *Service) List(ctx context.Context, ownerID string) (ListResult, error) {
	if strings.TrimSpace(ownerID) == "" {
		return ListResult{}, ErrAuthRequired
	}
	docs, err := s.Repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return ListResult{}, fmt.Errorf("list documents: %w", err)
	}

	resolved := make([]*ListedDocument, len(docs))
	var g errgroup.Group
	g.SetLimit(s.resolveLimit())
	for i := range docs {
		g.Go(func() error {
			listed, err := s.resolve(ctx, docs[i])
			if err != nil {
				telemetry.Warn("documents.url_resolve_skipped", map[string]any{
					"owner_id":    ownerID,
					"document_id": docs[i].ID,
					"file_path":   docs[i].FilePath,
					"error":       err,
				})
				return nil
			}
			resolved[i] = &listed
			return nil
		})
	}
	_ = g.Wait()

	out := ListResult{Documents: make([]ListedDocument, 0, len(docs))}
	for _, listed := range resolved {
		if listed == nil {
			out.Skipped++
			continue
		}
		out.Documents = append(out.Documents, *listed)
	}
	sortNewestFirst(out.Documents)
	metrics.AddURLResolveSkipped(out.Skipped)
	return out, nil
}

func (s *Service) resolve(ctx context.Context, doc Document) (ListedDocument, error) {
	url, err := s.Store.URL(ctx, doc.FilePath)
	if err != nil {
		return ListedDocument{}, err
	}
	return ListedDocument{Document: doc, URL: url}, nil
}

func (s *Service) resolveLimit() int {
	if s.ResolveConcurrency > 0 {
		return s.ResolveConcurrency
	}
	return defaultResolveConcurrency
}

// sortNewestFirst orders by CreatedAt descending. A missing timestamp is the
// zero time and so sorts oldest; equal timestamps fall back to ID ascending.
func sortNewestFirst(docs []ListedDocument) {
	slices.SortFunc(docs, func(a, b ListedDocument) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
