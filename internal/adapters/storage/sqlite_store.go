package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
)

// SQLiteStore is a SQLite implementation of the ScanStore interface
type SQLiteStore struct {
	db          *sql.DB
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewSQLiteStore creates a new SQLite scan store
func NewSQLiteStore(dbPath string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS scan_history (
			scan_id TEXT PRIMARY KEY,
			sender_domain TEXT,
			verdict TEXT,
			confidence REAL,
			rules TEXT,
			ml_probability REAL,
			created_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Indexes for the history filters and retention cleanup
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_sender_domain ON scan_history(sender_domain)`,
		`CREATE INDEX IF NOT EXISTS idx_verdict ON scan_history(verdict)`,
		`CREATE INDEX IF NOT EXISTS idx_created_at ON scan_history(created_at)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	store := &SQLiteStore{
		db:          db,
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go store.startCleanupTask()

	return store, nil
}

// SaveScan stores one completed scan
func (s *SQLiteStore) SaveScan(ctx context.Context, record *core.ScanRecord) error {
	rules, err := json.Marshal(record.Rules)
	if err != nil {
		return fmt.Errorf("failed to encode rule list: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scan_history
			(scan_id, sender_domain, verdict, confidence, rules, ml_probability, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.ScanID, record.SenderDomain, record.Verdict, record.Confidence,
		string(rules), record.MLProbability, record.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}
	return nil
}

// QueryHistory returns persisted scans matching the filter, newest first
func (s *SQLiteStore) QueryHistory(ctx context.Context, filter core.HistoryFilter) ([]core.ScanRecord, error) {
	query := `
		SELECT scan_id, sender_domain, verdict, confidence, rules, ml_probability, created_at
		FROM scan_history
		WHERE 1=1`
	args := []interface{}{}

	if filter.SenderDomain != "" {
		query += " AND sender_domain = ?"
		args = append(args, filter.SenderDomain)
	}
	if filter.Verdict != "" {
		query += " AND verdict = ?"
		args = append(args, filter.Verdict)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	defer rows.Close()

	return scanRows(rows, s.logger)
}

// Stats returns aggregate counts over all persisted scans
func (s *SQLiteStore) Stats(ctx context.Context) (*core.ScanStats, error) {
	stats := &core.ScanStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN verdict = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN verdict = ? THEN 1 ELSE 0 END), 0)
		FROM scan_history
	`, core.VerdictPhishing, core.VerdictBenign).
		Scan(&stats.TotalScans, &stats.PhishingDetected, &stats.Benign)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan stats: %w", err)
	}
	return stats, nil
}

// Cleanup removes records older than the retention period
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	cutoff := time.Now().Add(-s.retention).Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM scan_history WHERE created_at <= ?
	`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up expired records: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired scan records", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// startCleanupTask starts a background task to clean up expired records
func (s *SQLiteStore) startCleanupTask() {
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

// Stop stops the background cleanup task and closes the database
func (s *SQLiteStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close SQLite database", zap.Error(err))
		}
	})
}

// scanRows decodes query rows into scan records. Records whose rule
// list fails to decode keep an empty list rather than failing the
// whole query.
func scanRows(rows *sql.Rows, logger *zap.Logger) ([]core.ScanRecord, error) {
	records := make([]core.ScanRecord, 0)
	for rows.Next() {
		var record core.ScanRecord
		var rules string
		var createdAt string
		if err := rows.Scan(&record.ScanID, &record.SenderDomain, &record.Verdict,
			&record.Confidence, &rules, &record.MLProbability, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if err := json.Unmarshal([]byte(rules), &record.Rules); err != nil {
			logger.Warn("Failed to decode rule list", zap.Error(err), zap.String("scan_id", record.ScanID))
			record.Rules = []string{}
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			record.CreatedAt = ts
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
