package config

import (
	"reflect"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	ml := cfg.GetML()
	if ml.Provider != "bedrock" {
		t.Errorf("ml.Provider = %q, want bedrock", ml.Provider)
	}
	if ml.Policy.Floor != 0.05 || ml.Policy.HighBand != 0.80 || ml.Policy.MediumBand != 0.50 {
		t.Errorf("ml.Policy = %+v, want floor 0.05 / high 0.80 / medium 0.50", ml.Policy)
	}
	if ml.MaxTextSize != 4096 {
		t.Errorf("ml.MaxTextSize = %d, want 4096", ml.MaxTextSize)
	}

	fusionCfg := cfg.GetFusion()
	if fusionCfg.RulesWeight != 0.4 || fusionCfg.MLWeight != 0.6 {
		t.Errorf("fusion weights = (%v, %v), want (0.4, 0.6)", fusionCfg.RulesWeight, fusionCfg.MLWeight)
	}
	if fusionCfg.VerdictThreshold != 0.5 {
		t.Errorf("fusion.VerdictThreshold = %v, want 0.5", fusionCfg.VerdictThreshold)
	}
	if !fusionCfg.FailOpen {
		t.Error("fusion.FailOpen must default to true")
	}

	rulesCfg := cfg.GetRules()
	wantTLDs := []string{"ru", "cn", "tk", "ml", "ga", "cf"}
	if !reflect.DeepEqual(rulesCfg.SuspiciousTLDs, wantTLDs) {
		t.Errorf("rules.SuspiciousTLDs = %v, want %v", rulesCfg.SuspiciousTLDs, wantTLDs)
	}
	weightSum := rulesCfg.Weights.SuspiciousSenderDomain +
		rulesCfg.Weights.UrgentSubject +
		rulesCfg.Weights.MultipleDomains +
		rulesCfg.Weights.URLMismatch +
		rulesCfg.Weights.SuspiciousPhrases
	if diff := weightSum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("default rule weights sum to %v, want 1.0", weightSum)
	}

	if cfg.GetString("storage.type") != "memory" {
		t.Errorf("storage.type = %q, want memory", cfg.GetString("storage.type"))
	}
	if cfg.GetString("server.listen_address") != "0.0.0.0:8080" {
		t.Errorf("server.listen_address = %q, want 0.0.0.0:8080", cfg.GetString("server.listen_address"))
	}
}

func TestGetDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	retention, err := cfg.GetDuration("storage.retention")
	if err != nil {
		t.Fatalf("GetDuration(storage.retention): %v", err)
	}
	if retention != 720*time.Hour {
		t.Errorf("storage.retention = %v, want 720h", retention)
	}

	if _, err := cfg.GetDuration("logging.level"); err == nil {
		t.Error("GetDuration on a non-duration value must error")
	}
}

func TestOverridesWinOverDefaults(t *testing.T) {
	v := NewEmptyViper()
	v.Set("ml.provider", "static")
	v.Set("fusion.fail_open", false)
	cfg := NewFromViper(v)

	if got := cfg.GetML().Provider; got != "static" {
		t.Errorf("ml.Provider = %q, want static", got)
	}
	if cfg.GetFusion().FailOpen {
		t.Error("fusion.FailOpen override must win over the default")
	}
}
