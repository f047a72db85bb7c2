// Package backup exports the garage's collections as JSON and stores them
// in an S3-compatible bucket.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"garage-backend/internal/metrics"
	"garage-backend/internal/models"
)

const keyPrefix = "backups/"

// ErrRunning is returned when a backup is requested while one is in progress.
var ErrRunning = errors.New("backup already running")

type ClientSource interface {
	List(ctx context.Context) ([]*models.Client, error)
}

type ServiceSource interface {
	List(ctx context.Context) ([]*models.Service, error)
}

type EventSource interface {
	List(ctx context.Context) ([]*models.Event, error)
}

// Object is one stored backup.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	SizeHuman    string    `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the bucket the backups go to.
type Store interface {
	Put(ctx context.Context, key string, body []byte) error
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Snapshot is the exported document.
type Snapshot struct {
	TakenAt  time.Time         `json:"taken_at"`
	Clients  []*models.Client  `json:"clients"`
	Services []*models.Service `json:"services"`
	Events   []*models.Event   `json:"events"`
}

// Result describes a finished run.
type Result struct {
	Key       string `json:"key"`
	Size      int64  `json:"size_bytes"`
	SizeHuman string `json:"size"`
	Rows      int    `json:"rows"`
}

// Status summarises the bucket contents.
type Status struct {
	Backups    []Object `json:"backups"`
	TotalSize  string   `json:"total_size"`
	LastBackup string   `json:"last_backup"`
}

type Service struct {
	clients  ClientSource
	services ServiceSource
	events   EventSource
	store    Store

	running sync.Mutex
	now     func() time.Time
}

func NewService(clients ClientSource, services ServiceSource, events EventSource, store Store) *Service {
	return &Service{clients: clients, services: services, events: events, store: store, now: time.Now}
}

// Export reads every collection in parallel.
func (s *Service) Export(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{TakenAt: s.now().UTC()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Clients, err = s.clients.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Services, err = s.services.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Events, err = s.events.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Run performs a single backup.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	if !s.running.TryLock() {
		return nil, ErrRunning
	}
	defer s.running.Unlock()

	res, err := s.run(ctx)
	if err != nil {
		metrics.BackupRuns.WithLabelValues("failed").Inc()
		log.Printf("[Backup] Failed: %v", err)
		return nil, err
	}
	metrics.BackupRuns.WithLabelValues("success").Inc()
	log.Printf("[Backup] Success: %s (%s)", res.Key, res.SizeHuman)
	return res, nil
}

func (s *Service) run(ctx context.Context) (*Result, error) {
	snap, err := s.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%sgarage_%s.json", keyPrefix, snap.TakenAt.Format("20060102_150405"))
	if err := s.store.Put(ctx, key, body); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	size := int64(len(body))
	return &Result{
		Key:       key,
		Size:      size,
		SizeHuman: formatBytes(size),
		Rows:      len(snap.Clients) + len(snap.Services) + len(snap.Events),
	}, nil
}

// Status lists stored backups, newest first.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	objects, err := s.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].LastModified.After(objects[j].LastModified) })

	st := &Status{Backups: objects, LastBackup: "Never"}
	var total int64
	for i := range objects {
		objects[i].SizeHuman = formatBytes(objects[i].Size)
		total += objects[i].Size
	}
	st.TotalSize = formatBytes(total)
	if len(objects) > 0 {
		st.LastBackup = objects[0].LastModified.Format("2006-01-02 15:04:05")
	}
	return st, nil
}

// Schedule runs a backup immediately and then every interval until ctx
// is done.
func (s *Service) Schedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	log.Printf("[Backup] Scheduler started (interval: %v)", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runScheduled(ctx)
	for {
		select {
		case <-ticker.C:
			s.runScheduled(ctx)
		case <-ctx.Done():
			log.Println("[Backup] Scheduler stopped")
			return
		}
	}
}

func (s *Service) runScheduled(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	if _, err := s.Run(runCtx); errors.Is(err, ErrRunning) {
		log.Println("[Backup] Skipped, previous run still in progress")
	}
}

// formatBytes formats bytes to human readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
