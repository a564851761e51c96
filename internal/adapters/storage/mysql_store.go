package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
)

// MySQLStore is a MySQL implementation of the ScanStore interface
type MySQLStore struct {
	db          *sql.DB
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMySQLStore creates a new MySQL scan store
func NewMySQLStore(dsn string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS scan_history (
			scan_id VARCHAR(36) PRIMARY KEY,
			sender_domain VARCHAR(255),
			verdict VARCHAR(16),
			confidence DOUBLE,
			rules TEXT,
			ml_probability DOUBLE,
			created_at TIMESTAMP,
			INDEX idx_sender_domain (sender_domain),
			INDEX idx_verdict (verdict),
			INDEX idx_created_at (created_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	store := &MySQLStore{
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
func (s *MySQLStore) SaveScan(ctx context.Context, record *core.ScanRecord) error {
	rules, err := json.Marshal(record.Rules)
	if err != nil {
		return fmt.Errorf("failed to encode rule list: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		REPLACE INTO scan_history
			(scan_id, sender_domain, verdict, confidence, rules, ml_probability, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.ScanID, record.SenderDomain, record.Verdict, record.Confidence,
		string(rules), record.MLProbability, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}
	return nil
}

// QueryHistory returns persisted scans matching the filter, newest first
func (s *MySQLStore) QueryHistory(ctx context.Context, filter core.HistoryFilter) ([]core.ScanRecord, error) {
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

	records := make([]core.ScanRecord, 0)
	for rows.Next() {
		var record core.ScanRecord
		var rules string
		if err := rows.Scan(&record.ScanID, &record.SenderDomain, &record.Verdict,
			&record.Confidence, &rules, &record.MLProbability, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if err := json.Unmarshal([]byte(rules), &record.Rules); err != nil {
			s.logger.Warn("Failed to decode rule list", zap.Error(err), zap.String("scan_id", record.ScanID))
			record.Rules = []string{}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Stats returns aggregate counts over all persisted scans
func (s *MySQLStore) Stats(ctx context.Context) (*core.ScanStats, error) {
	stats := &core.ScanStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(verdict = ?), 0),
			COALESCE(SUM(verdict = ?), 0)
		FROM scan_history
	`, core.VerdictPhishing, core.VerdictBenign).
		Scan(&stats.TotalScans, &stats.PhishingDetected, &stats.Benign)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan stats: %w", err)
	}
	return stats, nil
}

// Cleanup removes records older than the retention period
func (s *MySQLStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM scan_history WHERE created_at <= ?
	`, time.Now().Add(-s.retention))
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
func (s *MySQLStore) startCleanupTask() {
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
func (s *MySQLStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close MySQL connection", zap.Error(err))
		}
	})
}
