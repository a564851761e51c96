package rules

import (
	"reflect"
	"testing"

	"github.com/mrinal140420/phishing-email-sentinel/internal/config"
	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
)

func testConfig() config.RulesConfig {
	return config.RulesConfig{
		SuspiciousTLDs:    []string{"ru", "cn", "tk", "ml", "ga", "cf"},
		UrgencyKeywords:   []string{"urgent", "immediate", "action required", "verify", "confirm"},
		SuspiciousPhrases: []string{"click here", "login now", "update your information", "account suspended"},
		Weights: config.RuleWeights{
			SuspiciousSenderDomain: 0.30,
			UrgentSubject:          0.20,
			MultipleDomains:        0.25,
			URLMismatch:            0.15,
			SuspiciousPhrases:      0.10,
		},
	}
}

func ruleIDs(eval core.RuleEvaluation) []string {
	ids := make([]string, 0, len(eval.Triggered))
	for _, outcome := range eval.Triggered {
		ids = append(ids, outcome.RuleID)
	}
	return ids
}

func TestEvaluateIndividualRules(t *testing.T) {
	engine := NewEngine(testConfig())

	tests := []struct {
		name      string
		headers   core.Headers
		urls      []core.URLRecord
		body      core.BodyContent
		wantRules []string
		wantScore float64
	}{
		{
			name:      "clean email triggers nothing",
			headers:   core.Headers{From: "admin@example.com", Subject: "Meeting Tomorrow"},
			body:      core.BodyContent{PlainText: "Let's meet at 10am"},
			wantRules: []string{},
			wantScore: 0.0,
		},
		{
			name:      "suspicious sender TLD",
			headers:   core.Headers{From: "attacker@phishing.ru", Subject: "hello"},
			wantRules: []string{RuleSuspiciousSenderDomain},
			wantScore: 0.30,
		},
		{
			name:      "urgent subject is case-insensitive",
			headers:   core.Headers{From: "a@example.com", Subject: "URGENT notice"},
			wantRules: []string{RuleUrgentSubject},
			wantScore: 0.20,
		},
		{
			name:    "multiple URL domains",
			headers: core.Headers{From: "a@example.com"},
			urls: []core.URLRecord{
				{URL: "http://example.com/a", Domain: "example.com"},
				{URL: "http://evil.net/b", Domain: "evil.net"},
			},
			wantRules: []string{RuleMultipleDomains, RuleURLMismatch},
			wantScore: 0.40,
		},
		{
			name:    "url mismatch only",
			headers: core.Headers{From: "a@example.com"},
			urls: []core.URLRecord{
				{URL: "http://evil.net/b", Domain: "evil.net"},
			},
			wantRules: []string{RuleURLMismatch},
			wantScore: 0.15,
		},
		{
			name:    "matching URL does not trigger mismatch",
			headers: core.Headers{From: "a@example.com"},
			urls: []core.URLRecord{
				{URL: "http://example.com/a", Domain: "example.com"},
			},
			wantRules: []string{},
			wantScore: 0.0,
		},
		{
			name:      "suspicious phrase in html body",
			headers:   core.Headers{From: "a@example.com"},
			body:      core.BodyContent{HTML: "<p>Click HERE now</p>"},
			wantRules: []string{RuleSuspiciousPhrases},
			wantScore: 0.10,
		},
		{
			name:      "display name sender form",
			headers:   core.Headers{From: "Account Team <attacker@phishing.ru>", Subject: "hello"},
			wantRules: []string{RuleSuspiciousSenderDomain},
			wantScore: 0.30,
		},
		{
			name:      "no sender domain skips sender rules",
			headers:   core.Headers{Subject: "hi"},
			urls:      []core.URLRecord{{URL: "http://evil.net", Domain: "evil.net"}},
			wantRules: []string{},
			wantScore: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := engine.Evaluate(tt.headers, tt.urls, tt.body)
			if got := ruleIDs(eval); !reflect.DeepEqual(got, tt.wantRules) {
				t.Errorf("triggered = %v, want %v", got, tt.wantRules)
			}
			if diff := eval.Score - tt.wantScore; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("score = %v, want %v", eval.Score, tt.wantScore)
			}
		})
	}
}

func TestEvaluatePhishingScenario(t *testing.T) {
	engine := NewEngine(testConfig())

	headers := core.Headers{
		From:    "attacker@phishing.ru",
		Subject: "URGENT Action Required",
	}
	body := core.BodyContent{PlainText: "Click here now to verify your account!"}

	eval := engine.Evaluate(headers, nil, body)

	want := []string{RuleSuspiciousSenderDomain, RuleUrgentSubject, RuleSuspiciousPhrases}
	if got := ruleIDs(eval); !reflect.DeepEqual(got, want) {
		t.Errorf("triggered = %v, want %v", got, want)
	}
	if diff := eval.Score - 0.60; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score = %v, want 0.60", eval.Score)
	}
}

func TestEvaluateCapsAggregateScore(t *testing.T) {
	cfg := testConfig()
	cfg.Weights = config.RuleWeights{
		SuspiciousSenderDomain: 0.9,
		UrgentSubject:          0.9,
		MultipleDomains:        0.9,
		URLMismatch:            0.9,
		SuspiciousPhrases:      0.9,
	}
	engine := NewEngine(cfg)

	headers := core.Headers{From: "a@bad.ru", Subject: "urgent"}
	urls := []core.URLRecord{
		{URL: "http://x.com", Domain: "x.com"},
		{URL: "http://y.com", Domain: "y.com"},
	}
	body := core.BodyContent{PlainText: "click here"}

	eval := engine.Evaluate(headers, urls, body)
	if len(eval.Triggered) != 5 {
		t.Fatalf("got %d triggered rules, want 5", len(eval.Triggered))
	}
	if eval.Score != 1.0 {
		t.Errorf("score = %v, want capped at 1.0", eval.Score)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	engine := NewEngine(testConfig())

	headers := core.Headers{From: "attacker@phishing.ru", Subject: "verify now"}
	urls := []core.URLRecord{{URL: "http://evil.net", Domain: "evil.net"}}
	body := core.BodyContent{PlainText: "login now"}

	first := engine.Evaluate(headers, urls, body)
	second := engine.Evaluate(headers, urls, body)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("evaluations differ: %+v vs %+v", first, second)
	}
}
