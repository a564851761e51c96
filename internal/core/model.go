package core

import (
	"time"
)

// Verdict values for a completed scan.
const (
	VerdictPhishing = "PHISHING"
	VerdictBenign   = "BENIGN"
)

// Confidence bands reported by classifiers.
const (
	ConfidenceLow    = "LOW"
	ConfidenceMedium = "MEDIUM"
	ConfidenceHigh   = "HIGH"
)

// Error types attached to scan results.
const (
	ErrTypeParsing = "PARSING_ERROR"
)

// ErrorInfo describes a failure that was absorbed by the pipeline
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Headers holds the decoded headers the pipeline cares about. Absent
// headers are empty strings; Received keeps every occurrence in
// receipt order.
type Headers struct {
	From     string
	ReplyTo  string
	Subject  string
	Received []string
}

// BodyContent holds the extracted body variants. At least one of the
// two is populated unless the message body is truly empty.
type BodyContent struct {
	PlainText string
	HTML      string
}

// URLRecord is a URL extracted from the body together with its
// authority component.
type URLRecord struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
}

// ParsedEmail is the structured form of one raw message. It is built
// once per scan by the parser and never mutated afterwards. ParseError
// is set instead of returning an error so the pipeline never fails.
type ParsedEmail struct {
	ID         string
	Headers    Headers
	Body       BodyContent
	URLs       []URLRecord
	ParseError *ErrorInfo
}

// RuleOutcome describes one triggered heuristic rule
type RuleOutcome struct {
	RuleID      string  `json:"rule_id"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// RuleEvaluation is the aggregate output of the rule engine. Score is
// the sum of triggered weights capped at 1.0; Triggered preserves
// evaluation order.
type RuleEvaluation struct {
	Score     float64
	Triggered []RuleOutcome
}

// MLSignal is the classifier reading for one scan. Probability is
// floored (never zero) so the model can never convey full certainty of
// benignity; Degraded marks a neutral fallback reading.
type MLSignal struct {
	Probability    float64
	ConfidenceBand string
	SourceLabel    string
	Degraded       bool
}

// Decision is the fused outcome of rules and ML signal
type Decision struct {
	FinalScore     float64
	Verdict        string
	RulesTriggered []string
	RulesWeight    float64
	MLWeight       float64
}

// Signals carries the per-signal breakdown reported to callers
type Signals struct {
	Rules         []string `json:"rules"`
	MLProbability float64  `json:"ml_probability"`
}

// ScanResult is the sole artifact the pipeline hands to callers. It is
// created fresh per request and never mutated after return.
type ScanResult struct {
	ScanID     string     `json:"scan_id"`
	Verdict    string     `json:"verdict"`
	Confidence float64    `json:"confidence"`
	Signals    Signals    `json:"signals"`
	Error      *ErrorInfo `json:"error,omitempty"`
	Timestamp  string     `json:"timestamp"`
}

// ScanRecord is the persistence shape for one completed scan
type ScanRecord struct {
	ScanID        string    `json:"scan_id"`
	SenderDomain  string    `json:"sender_domain"`
	Verdict       string    `json:"verdict"`
	Confidence    float64   `json:"confidence"`
	Rules         []string  `json:"rules"`
	MLProbability float64   `json:"ml_probability"`
	CreatedAt     time.Time `json:"created_at"`
}

// ScanStats summarizes persisted scan history
type ScanStats struct {
	TotalScans       int64 `json:"total_scans"`
	PhishingDetected int64 `json:"phishing_detected"`
	Benign           int64 `json:"benign"`
}

// HistoryFilter narrows a history query. Empty string fields match
// everything.
type HistoryFilter struct {
	SenderDomain string
	Verdict      string
	Limit        int
	Offset       int
}

// MLPolicy holds the probability floor and confidence band cutoffs a
// classifier applies to every reading it produces.
type MLPolicy struct {
	Floor      float64
	HighBand   float64
	MediumBand float64
}

// Clamp forces a probability into [Floor, 1.0]
func (p MLPolicy) Clamp(prob float64) float64 {
	if prob < p.Floor {
		return p.Floor
	}
	if prob > 1.0 {
		return 1.0
	}
	return prob
}

// Band maps a probability to its confidence band
func (p MLPolicy) Band(prob float64) string {
	switch {
	case prob >= p.HighBand:
		return ConfidenceHigh
	case prob >= p.MediumBand:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Degraded returns the neutral fallback reading for this policy. The
// floored probability still participates in fusion, which naturally
// suppresses the signal's influence.
func (p MLPolicy) Degraded(sourceLabel string) MLSignal {
	return MLSignal{
		Probability:    p.Floor,
		ConfidenceBand: ConfidenceLow,
		SourceLabel:    sourceLabel,
		Degraded:       true,
	}
}
