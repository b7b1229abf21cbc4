package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"securelink-backend/internal/shared/events"
	"securelink-backend/internal/shared/storage/object"
)

var errBoom = errors.New("boom")

// fakeStore is an in-memory ObjectStore that records every call.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	calls   []string

	existsErr error
	putErr    error
	deleteErr error
	urlErr    map[string]error
	// conflictOnPut makes the conditional write lose a race after the probe.
	conflictOnPut bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte), urlErr: make(map[string]error)}
}

func (s *fakeStore) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("exists:" + key)
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStore) Put(_ context.Context, in object.PutInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("put:" + in.Key)
	if s.putErr != nil {
		return 0, s.putErr
	}
	if s.conflictOnPut {
		return 0, object.ErrAlreadyExists
	}
	if _, ok := s.objects[in.Key]; ok && in.IfAbsent {
		return 0, object.ErrAlreadyExists
	}
	data, err := io.ReadAll(object.NewProgressReader(in.Body, in.Size, in.Progress))
	if err != nil {
		return 0, err
	}
	s.objects[in.Key] = data
	return int64(len(data)), nil
}

func (s *fakeStore) URL(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("url:" + key)
	if err := s.urlErr[key]; err != nil {
		return "", err
	}
	if _, ok := s.objects[key]; !ok {
		return "", object.ErrNotFound
	}
	return "https://blobs.test/" + key, nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("delete:" + key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.objects[key]; !ok {
		return object.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *fakeStore) count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (s *fakeStore) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// faultyRepo wraps MemoryRepo with injectable failures.
type faultyRepo struct {
	*MemoryRepo
	findErr   error
	insertErr error
	listErr   error
	updateErr error
	deleteErr error
}

func newFaultyRepo() *faultyRepo {
	return &faultyRepo{MemoryRepo: NewMemoryRepo()}
}

func (r *faultyRepo) FindByOwnerAndType(ctx context.Context, ownerID string, docType DocType) (Document, error) {
	if r.findErr != nil {
		return Document{}, r.findErr
	}
	return r.MemoryRepo.FindByOwnerAndType(ctx, ownerID, docType)
}

func (r *faultyRepo) Insert(ctx context.Context, doc Document) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	return r.MemoryRepo.Insert(ctx, doc)
}

func (r *faultyRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.MemoryRepo.ListByOwner(ctx, ownerID)
}

func (r *faultyRepo) UpdateFile(ctx context.Context, doc Document) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.MemoryRepo.UpdateFile(ctx, doc)
}

func (r *faultyRepo) Delete(ctx context.Context, ownerID, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.MemoryRepo.Delete(ctx, ownerID, id)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	svc   *Service
	repo  *faultyRepo
	store *fakeStore
	pub   *recordingPublisher
	clock *fakeClock
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:  newFaultyRepo(),
		store: newFakeStore(),
		pub:   &recordingPublisher{},
		clock: &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
	env.svc = NewService(env.repo, env.store, env.pub)
	env.svc.now = env.clock.Now
	return env
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// pngFile returns a PNG-signed file of the given size.
func pngFile(name string, size int) *FileInput {
	data := make([]byte, size)
	copy(data, pngHeader)
	return &FileInput{Name: name, ContentType: "image/png", Size: int64(size), Content: data}
}

func jpegFile(name string, size int) *FileInput {
	data := make([]byte, size)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00})
	return &FileInput{Name: name, ContentType: "image/jpeg", Size: int64(size), Content: data}
}

// minimalPDF builds a well-formed PDF with the given number of empty pages.
func minimalPDF(pages int) []byte {
	var objs []string
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		objs = append(objs, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func pdfFile(name string, pages int) *FileInput {
	data := minimalPDF(pages)
	return &FileInput{Name: name, ContentType: "application/pdf", Size: int64(len(data)), Content: data}
}

func validUpload(docType DocType, file *FileInput) UploadInput {
	return UploadInput{DocType: docType, IDNumber: "123456789012", File: file}
}
