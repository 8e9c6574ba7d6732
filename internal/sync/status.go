package sync

import (
	"sync"
	"time"
)

// SyncStatus is a snapshot of engine state exposed to observers. Fields
// are copied out under Engine's status lock, never shared by reference, so
// a reader never blocks a running cycle nor observes a half-written
// update.
type SyncStatus struct {
	IsSyncing        bool
	LastSyncEnd      *time.Time
	FilesUploaded    int
	FilesDownloaded  int
	FilesForgotten   int
	TotalFiles       int
	CurrentOperation string
	Progress         float64
	Errors           []string
}

// statusBox guards a SyncStatus with a mutex sized for short critical
// sections only: callers must never hold it across remote I/O, matching
// the concurrency model's "Catalog and Status are locked only across
// individual calls" rule.
type statusBox struct {
	mu     sync.Mutex
	status SyncStatus
}

func (b *statusBox) snapshot() SyncStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := b.status
	cp.Errors = append([]string(nil), b.status.Errors...)

	return cp
}

// tryStart performs the single-flight test-and-set; returns false if a
// cycle is already running.
func (b *statusBox) tryStart() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status.IsSyncing {
		return false
	}

	b.status.IsSyncing = true
	b.status.FilesUploaded = 0
	b.status.FilesDownloaded = 0
	b.status.FilesForgotten = 0
	b.status.Errors = nil
	b.status.Progress = 0
	b.status.CurrentOperation = "starting"

	return true
}

func (b *statusBox) update(fn func(*SyncStatus)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fn(&b.status)
}

func (b *statusBox) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.status.IsSyncing = false
	b.status.LastSyncEnd = &now
	b.status.Progress = 1.0
	b.status.CurrentOperation = "idle"
}
