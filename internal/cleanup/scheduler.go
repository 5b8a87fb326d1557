package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Target is a directory whose files expire after MaxAge
type Target struct {
	Dir    string
	MaxAge time.Duration
}

// PruneFunc deletes records older than cutoff and returns how many it removed
type PruneFunc func(cutoff time.Time) (int64, error)

// Stats summarizes one sweep
type Stats struct {
	FilesDeleted int
	BytesFreed   int64
	RowsPruned   int64
}

// Scheduler handles cleanup of temporary files, old logs and stale metadata
type Scheduler struct {
	targets   []Target
	interval  time.Duration
	prune     PruneFunc
	retention time.Duration
	inUse     *Registry
	logger    *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(interval time.Duration, logger *zap.Logger, targets ...Target) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		targets:  targets,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// WithPrune makes each sweep also call prune for records older than retention
func (s *Scheduler) WithPrune(retention time.Duration, prune PruneFunc) *Scheduler {
	s.retention = retention
	s.prune = prune
	return s
}

// WithRegistry makes sweeps skip files held in r
func (s *Scheduler) WithRegistry(r *Registry) *Scheduler {
	s.inUse = r
	return s
}

// Start runs an initial sweep and then sweeps every interval
func (s *Scheduler) Start() {
	s.logger.Info("Running initial cleanup")
	s.Sweep()

	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopChan:
				return
			}
		}
	}()

	s.logger.Info("Cleanup scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("targets", len(s.targets)),
	)
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.logger.Info("Cleanup scheduler stopped")
	})
}

// Sweep removes expired files from every target and prunes metadata
func (s *Scheduler) Sweep() Stats {
	var stats Stats
	now := s.now()

	for _, target := range s.targets {
		s.cleanOldFiles(now, target, &stats)
	}

	if s.prune != nil && s.retention > 0 {
		n, err := s.prune(now.Add(-s.retention))
		if err != nil {
			s.logger.Error("Failed to prune transcript metadata", zap.Error(err))
		}
		stats.RowsPruned = n
	}

	if stats.FilesDeleted > 0 || stats.RowsPruned > 0 {
		s.logger.Info("Cleanup complete",
			zap.Int("files_deleted", stats.FilesDeleted),
			zap.Float64("mb_freed", float64(stats.BytesFreed)/(1024*1024)),
			zap.Int64("rows_pruned", stats.RowsPruned),
		)
	}
	return stats
}

// cleanOldFiles removes files older than target.MaxAge below target.Dir
func (s *Scheduler) cleanOldFiles(now time.Time, target Target, stats *Stats) {
	err := filepath.Walk(target.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= target.MaxAge {
			return nil
		}
		if s.inUse != nil && s.inUse.Held(path) {
			s.logger.Debug("Skipping file in use", zap.String("file", filepath.Base(path)))
			return nil
		}

		size := info.Size()
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Failed to delete old file", zap.String("path", path), zap.Error(err))
			return nil
		}
		stats.FilesDeleted++
		stats.BytesFreed += size
		s.logger.Debug("Deleted old file",
			zap.String("file", filepath.Base(path)),
			zap.Duration("age", age.Round(time.Hour)),
			zap.Int64("size_kb", size/1024),
		)
		return nil
	})

	if err != nil {
		s.logger.Error("Error during cleanup", zap.String("dir", target.Dir), zap.Error(err))
	}
}

// EnsureDirs creates the given directories if they don't exist
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
