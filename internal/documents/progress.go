package documents

import (
	"sync"
	"time"

	"securelink-backend/internal/shared/storage/object"
)

// Upload states exposed by the progress resource.
const (
	UploadUploading = "uploading"
	UploadSucceeded = "succeeded"
	UploadFailed    = "failed"
)

// UploadProgress is the observable state of one upload.
type UploadProgress struct {
	ID        string    `json:"uploadId"`
	Percent   int       `json:"percent"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tracker keeps upload progress per (owner, upload id) for a limited time.
type Tracker struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]UploadProgress
	now   func() time.Time
}

func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Tracker{ttl: ttl, items: make(map[string]UploadProgress), now: time.Now}
}

func trackerKey(ownerID, uploadID string) string {
	return ownerID + "/" + uploadID
}

// Start registers an upload at 0% and returns its progress callback.
// Percent never goes backwards, even when a backend rewinds the body.
func (t *Tracker) Start(ownerID, uploadID string) object.ProgressFunc {
	key := trackerKey(ownerID, uploadID)
	t.mu.Lock()
	t.sweep()
	t.items[key] = UploadProgress{ID: uploadID, State: UploadUploading, UpdatedAt: t.now()}
	t.mu.Unlock()

	return func(transferred, total int64) {
		pct := object.Percent(transferred, total)
		t.mu.Lock()
		defer t.mu.Unlock()
		p, ok := t.items[key]
		if !ok || p.State != UploadUploading || pct <= p.Percent {
			return
		}
		p.Percent = pct
		p.UpdatedAt = t.now()
		t.items[key] = p
	}
}

// Succeed marks the upload complete at 100%.
func (t *Tracker) Succeed(ownerID, uploadID string) {
	t.finish(ownerID, uploadID, UploadSucceeded, "")
}

// Fail marks the upload failed with a user-facing message.
func (t *Tracker) Fail(ownerID, uploadID, message string) {
	t.finish(ownerID, uploadID, UploadFailed, message)
}

func (t *Tracker) finish(ownerID, uploadID, state, message string) {
	key := trackerKey(ownerID, uploadID)
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.items[key]
	if !ok {
		p = UploadProgress{ID: uploadID}
	}
	p.State = state
	p.Error = message
	if state == UploadSucceeded {
		p.Percent = 100
	}
	p.UpdatedAt = t.now()
	t.items[key] = p
}

// Get returns the progress of one of the owner's uploads.
func (t *Tracker) Get(ownerID, uploadID string) (UploadProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweep()
	p, ok := t.items[trackerKey(ownerID, uploadID)]
	return p, ok
}

// sweep drops expired entries; callers hold mu.
func (t *Tracker) sweep() {
	cutoff := t.now().Add(-t.ttl)
	for k, p := range t.items {
		if p.UpdatedAt.Before(cutoff) {
			delete(t.items, k)
		}
	}
}
