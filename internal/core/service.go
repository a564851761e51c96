package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllowlistChecker reports whether a sender address belongs to a
// domain that bypasses scanning entirely.
type AllowlistChecker interface {
	IsAllowed(from string) bool
}

// ScanService is the scan orchestrator: parse -> rules -> ML -> fuse.
// Each scan is independent; the service holds no per-scan state and is
// safe for concurrent use.
type ScanService struct {
	parser     EmailParser
	rules      RuleEngine
	classifier Classifier
	fuser      DecisionFuser
	store      ScanStore
	allowlist  AllowlistChecker
	logger     *zap.Logger
	failOpen   bool
}

// NewScanService creates a new scan orchestrator. store and allowlist
// may be nil, which disables persistence and the allowlist bypass.
func NewScanService(
	parser EmailParser,
	rules RuleEngine,
	classifier Classifier,
	fuser DecisionFuser,
	store ScanStore,
	allowlist AllowlistChecker,
	logger *zap.Logger,
	failOpen bool,
) *ScanService {
	return &ScanService{
		parser:     parser,
		rules:      rules,
		classifier: classifier,
		fuser:      fuser,
		store:      store,
		allowlist:  allowlist,
		logger:     logger,
		failOpen:   failOpen,
	}
}

// Scan runs the full pipeline over one raw message. It never returns
// an error: every failure mode produces a degraded-but-complete
// ScanResult.
func (s *ScanService) Scan(ctx context.Context, raw string) *ScanResult {
	scanID := uuid.New().String()

	parsed := s.parser.Parse(raw)
	if parsed.ParseError != nil {
		s.logger.Warn("Email parsing failed, short-circuiting scan",
			zap.String("scan_id", scanID),
			zap.String("error", parsed.ParseError.Message),
			zap.Bool("fail_open", s.failOpen))
		result := s.shortCircuit(scanID, parsed.ParseError)
		s.persist(ctx, result, "unknown")
		return result
	}

	if s.allowlist != nil && s.allowlist.IsAllowed(parsed.Headers.From) {
		s.logger.Info("Skipping scan for allowlisted sender domain",
			zap.String("scan_id", scanID),
			zap.String("sender", parsed.Headers.From))
		result := &ScanResult{
			ScanID:     scanID,
			Verdict:    VerdictBenign,
			Confidence: 0.0,
			Signals:    Signals{Rules: []string{}},
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}
		s.persist(ctx, result, SenderDomain(parsed.Headers.From))
		return result
	}

	ruleEval := s.rules.Evaluate(parsed.Headers, parsed.URLs, parsed.Body)

	signal := s.classifier.Predict(ctx, s.classifierText(parsed))
	if signal.Degraded {
		s.logger.Warn("Classifier returned degraded signal",
			zap.String("scan_id", scanID),
			zap.String("source", signal.SourceLabel))
	}

	decision := s.fuser.Fuse(ruleEval, signal)

	result := &ScanResult{
		ScanID:     scanID,
		Verdict:    decision.Verdict,
		Confidence: decision.FinalScore,
		Signals: Signals{
			Rules:         decision.RulesTriggered,
			MLProbability: signal.Probability,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	s.logger.Info("Scan complete",
		zap.String("scan_id", scanID),
		zap.String("verdict", result.Verdict),
		zap.Float64("confidence", result.Confidence),
		zap.Strings("rules", decision.RulesTriggered),
		zap.Float64("ml_probability", signal.Probability))

	s.persist(ctx, result, SenderDomain(parsed.Headers.From))
	return result
}

// shortCircuit builds the result for a scan whose input could not be
// parsed. Rules and ML never run. The default policy fails open to
// BENIGN so malformed but legitimate mail is not blocked; failOpen=false
// inverts that for pipelines that would rather quarantine.
func (s *ScanService) shortCircuit(scanID string, errInfo *ErrorInfo) *ScanResult {
	verdict := VerdictBenign
	if !s.failOpen {
		verdict = VerdictPhishing
	}
	return &ScanResult{
		ScanID:     scanID,
		Verdict:    verdict,
		Confidence: 0.0,
		Signals:    Signals{Rules: []string{}},
		Error:      errInfo,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// classifierText assembles the text handed to the classifier. Mixing
// the subject into the prose is inherited from the original model
// contract; this method is the single seam to change if that is ever
// retuned.
func (s *ScanService) classifierText(parsed *ParsedEmail) string {
	return parsed.Headers.Subject + " " + parsed.Body.PlainText + " " + parsed.Body.HTML
}

// persist writes the scan to the store on a best-effort basis
func (s *ScanService) persist(ctx context.Context, result *ScanResult, senderDomain string) {
	if s.store == nil {
		return
	}
	record := &ScanRecord{
		ScanID:        result.ScanID,
		SenderDomain:  senderDomain,
		Verdict:       result.Verdict,
		Confidence:    result.Confidence,
		Rules:         result.Signals.Rules,
		MLProbability: result.Signals.MLProbability,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.SaveScan(ctx, record); err != nil {
		s.logger.Error("Failed to persist scan result",
			zap.Error(err),
			zap.String("scan_id", result.ScanID))
	}
}

// SenderDomain extracts the domain label from a From header value: the
// substring after the last "@", or "unknown" when there is none. The
// "Name <addr>" header form is tolerated.
func SenderDomain(from string) string {
	idx := strings.LastIndex(from, "@")
	if idx < 0 {
		return "unknown"
	}
	domain := strings.TrimSuffix(strings.TrimSpace(from[idx+1:]), ">")
	if domain == "" {
		return "unknown"
	}
	return domain
}
