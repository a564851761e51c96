package core

import (
	"context"
)

// EmailParser turns raw RFC-822 text into a ParsedEmail. It never
// fails; structural problems surface as ParsedEmail.ParseError.
type EmailParser interface {
	Parse(raw string) *ParsedEmail
}

// RuleEngine evaluates the heuristic rule battery over a parsed email.
// Implementations must be pure and deterministic.
type RuleEngine interface {
	Evaluate(headers Headers, urls []URLRecord, body BodyContent) RuleEvaluation
}

// Classifier maps assembled email text to a phishing probability. It
// never returns an error: internal failures must be mapped to a
// degraded neutral reading per MLPolicy. Inference is the only
// blocking call in the pipeline, so it takes a context.
type Classifier interface {
	Predict(ctx context.Context, text string) MLSignal
}

// DecisionFuser combines the rule evaluation and the ML signal into a
// final decision. Implementations must be pure and deterministic.
type DecisionFuser interface {
	Fuse(ruleEval RuleEvaluation, signal MLSignal) Decision
}

// ScanStore persists completed scans. Persistence is best-effort: the
// orchestrator logs SaveScan failures and never lets them fail a scan.
type ScanStore interface {
	// SaveScan stores one completed scan
	SaveScan(ctx context.Context, record *ScanRecord) error

	// QueryHistory returns persisted scans matching the filter,
	// newest first
	QueryHistory(ctx context.Context, filter HistoryFilter) ([]ScanRecord, error)

	// Stats returns aggregate counts over all persisted scans
	Stats(ctx context.Context) (*ScanStats, error)

	// Cleanup removes records older than the retention period
	Cleanup(ctx context.Context) error
}
