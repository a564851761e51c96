package staticml

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
	"github.com/mrinal140420/phishing-email-sentinel/internal/mltext"
)

func testPolicy() core.MLPolicy {
	return core.MLPolicy{Floor: 0.05, HighBand: 0.80, MediumBand: 0.50}
}

func newTestClassifier(probability float64) *Classifier {
	logger := zap.NewNop()
	return NewClassifier(probability, testPolicy(), mltext.NewCleaner(4096, logger), logger)
}

func TestPredict(t *testing.T) {
	tests := []struct {
		name            string
		probability     float64
		wantProbability float64
		wantBand        string
	}{
		{"low band", 0.2, 0.2, core.ConfidenceLow},
		{"medium band at boundary", 0.50, 0.50, core.ConfidenceMedium},
		{"high band at boundary", 0.80, 0.80, core.ConfidenceHigh},
		{"high band above boundary", 0.95, 0.95, core.ConfidenceHigh},
		{"below floor clamps up", 0.0, 0.05, core.ConfidenceLow},
		{"above one clamps down", 1.5, 1.0, core.ConfidenceHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal := newTestClassifier(tt.probability).Predict(context.Background(), "some email text")
			if signal.Probability != tt.wantProbability {
				t.Errorf("Probability = %v, want %v", signal.Probability, tt.wantProbability)
			}
			if signal.ConfidenceBand != tt.wantBand {
				t.Errorf("ConfidenceBand = %q, want %q", signal.ConfidenceBand, tt.wantBand)
			}
			if signal.SourceLabel != SourceLabel {
				t.Errorf("SourceLabel = %q, want %q", signal.SourceLabel, SourceLabel)
			}
			if signal.Degraded {
				t.Error("non-empty input must not produce a degraded signal")
			}
		})
	}
}

func TestPredictEmptyTextDegrades(t *testing.T) {
	classifier := newTestClassifier(0.9)

	for _, text := range []string{"", "   \n\t  ", "https://only-a-url.example/path"} {
		signal := classifier.Predict(context.Background(), text)
		if !signal.Degraded {
			t.Errorf("Predict(%q): expected degraded signal", text)
		}
		if signal.Probability != 0.05 {
			t.Errorf("Predict(%q): Probability = %v, want the 0.05 floor", text, signal.Probability)
		}
		if signal.ConfidenceBand != core.ConfidenceLow {
			t.Errorf("Predict(%q): ConfidenceBand = %q, want LOW", text, signal.ConfidenceBand)
		}
	}
}
