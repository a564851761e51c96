package rules

import (
	"strings"

	"github.com/mrinal140420/phishing-email-sentinel/internal/config"
	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
)

// Rule IDs in evaluation order.
const (
	RuleSuspiciousSenderDomain = "suspicious_sender_domain"
	RuleUrgentSubject          = "urgent_subject"
	RuleMultipleDomains        = "multiple_domains"
	RuleURLMismatch            = "url_mismatch"
	RuleSuspiciousPhrases      = "suspicious_phrases"
)

// Engine evaluates the fixed heuristic rule battery. Evaluation is
// pure and deterministic; every rule treats missing fields as empty
// rather than erroring. The keyword lists and weights come from
// configuration so they can be tuned without redeploying logic.
type Engine struct {
	cfg config.RulesConfig
}

// NewEngine creates a rule engine from configuration
func NewEngine(cfg config.RulesConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate runs every rule in battery order. Triggered weights are
// additive; only the aggregate score is capped at 1.0.
func (e *Engine) Evaluate(headers core.Headers, urls []core.URLRecord, body core.BodyContent) core.RuleEvaluation {
	triggered := []core.RuleOutcome{}
	total := 0.0

	sender := strings.ToLower(headers.From)
	senderDomain := ""
	if idx := strings.LastIndex(sender, "@"); idx >= 0 {
		// Tolerate the "Name <addr>" header form.
		senderDomain = strings.TrimSuffix(strings.TrimSpace(sender[idx+1:]), ">")
	}

	if e.hasSuspiciousTLD(senderDomain) {
		triggered = append(triggered, core.RuleOutcome{
			RuleID:      RuleSuspiciousSenderDomain,
			Description: "Sender domain is from a suspicious TLD",
			Weight:      e.cfg.Weights.SuspiciousSenderDomain,
		})
		total += e.cfg.Weights.SuspiciousSenderDomain
	}

	subject := strings.ToLower(headers.Subject)
	if containsAny(subject, e.cfg.UrgencyKeywords) {
		triggered = append(triggered, core.RuleOutcome{
			RuleID:      RuleUrgentSubject,
			Description: "Subject contains urgent or action-oriented keywords",
			Weight:      e.cfg.Weights.UrgentSubject,
		})
		total += e.cfg.Weights.UrgentSubject
	}

	if distinctDomains(urls) > 1 {
		triggered = append(triggered, core.RuleOutcome{
			RuleID:      RuleMultipleDomains,
			Description: "Email contains URLs from multiple different domains",
			Weight:      e.cfg.Weights.MultipleDomains,
		})
		total += e.cfg.Weights.MultipleDomains
	}

	if senderDomain != "" && hasMismatchedURL(urls, senderDomain) {
		triggered = append(triggered, core.RuleOutcome{
			RuleID:      RuleURLMismatch,
			Description: "URLs point to domains different from sender domain",
			Weight:      e.cfg.Weights.URLMismatch,
		})
		total += e.cfg.Weights.URLMismatch
	}

	bodyText := strings.ToLower(body.PlainText + " " + body.HTML)
	if containsAny(bodyText, e.cfg.SuspiciousPhrases) {
		triggered = append(triggered, core.RuleOutcome{
			RuleID:      RuleSuspiciousPhrases,
			Description: "Body contains common phishing phrases",
			Weight:      e.cfg.Weights.SuspiciousPhrases,
		})
		total += e.cfg.Weights.SuspiciousPhrases
	}

	score := total
	if score > 1.0 {
		score = 1.0
	}
	return core.RuleEvaluation{Score: score, Triggered: triggered}
}

// hasSuspiciousTLD reports whether the sender domain ends in one of
// the disallowed TLDs.
func (e *Engine) hasSuspiciousTLD(senderDomain string) bool {
	if senderDomain == "" {
		return false
	}
	for _, tld := range e.cfg.SuspiciousTLDs {
		if strings.HasSuffix(senderDomain, "."+strings.ToLower(tld)) {
			return true
		}
	}
	return false
}

// containsAny reports whether text contains at least one of the
// needles. Text is expected to be lowercased already.
func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(text, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

// distinctDomains counts the distinct non-empty URL domains
func distinctDomains(urls []core.URLRecord) int {
	domains := make(map[string]struct{})
	for _, u := range urls {
		if u.Domain != "" {
			domains[u.Domain] = struct{}{}
		}
	}
	return len(domains)
}

// hasMismatchedURL reports whether at least one URL points somewhere
// other than the sender's own domain.
func hasMismatchedURL(urls []core.URLRecord, senderDomain string) bool {
	for _, u := range urls {
		if !strings.EqualFold(u.Domain, senderDomain) {
			return true
		}
	}
	return false
}
