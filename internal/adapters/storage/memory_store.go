package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
)

// MemoryStore is an in-memory implementation of the ScanStore
// interface, suitable for development and tests.
type MemoryStore struct {
	records     []core.ScanRecord
	mu          sync.RWMutex
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryStore creates a new in-memory scan store
func NewMemoryStore(logger *zap.Logger, retention, cleanupFreq time.Duration) *MemoryStore {
	store := &MemoryStore{
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go store.startCleanupTask()

	return store
}

// SaveScan stores one completed scan
func (s *MemoryStore) SaveScan(ctx context.Context, record *core.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *record)
	return nil
}

// QueryHistory returns persisted scans matching the filter, newest first
func (s *MemoryStore) QueryHistory(ctx context.Context, filter core.HistoryFilter) ([]core.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]core.ScanRecord, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		record := s.records[i]
		if filter.SenderDomain != "" && record.SenderDomain != filter.SenderDomain {
			continue
		}
		if filter.Verdict != "" && record.Verdict != filter.Verdict {
			continue
		}
		matched = append(matched, record)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []core.ScanRecord{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Stats returns aggregate counts over all persisted scans
func (s *MemoryStore) Stats(ctx context.Context) (*core.ScanStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &core.ScanStats{}
	for _, record := range s.records {
		stats.TotalScans++
		switch record.Verdict {
		case core.VerdictPhishing:
			stats.PhishingDetected++
		case core.VerdictBenign:
			stats.Benign++
		}
	}
	return stats, nil
}

// Cleanup removes records older than the retention period
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.retention)
	kept := s.records[:0]
	expiredCount := 0
	for _, record := range s.records {
		if record.CreatedAt.Before(cutoff) {
			expiredCount++
			continue
		}
		kept = append(kept, record)
	}
	s.records = kept

	s.logger.Debug("Cleaned up expired scan records", zap.Int("expired_count", expiredCount))
	return nil
}

// startCleanupTask starts a background task to clean up expired records
func (s *MemoryStore) startCleanupTask() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				s.logger.Error("Failed to clean up scan history", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
