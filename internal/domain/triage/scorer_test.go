package triage

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreRiskMildHeadacheIsLow(t *testing.T) {
	c := baseCase()
	c.ComplaintCategory = ComplaintHeadache
	c.Severity = SeverityMild
	c.Duration = DurationOneDay

	a := ScoreRisk(c)
	if !almostEqual(a.Score, 0.25+0.03) {
		t.Errorf("score = %.3f, want 0.28", a.Score)
	}
	if a.Level != RiskLow {
		t.Errorf("level = %s, want low", a.Level)
	}
}

func TestScoreRiskNewbornFeverStaysLow(t *testing.T) {
	// Moderate newborn fever stays below the medium threshold; the age
	// escalation happens at synthesis, not here.
	c := baseCase()
	c.AgeGroup = AgeNewborn
	c.ComplaintCategory = ComplaintFever
	c.Severity = SeverityModerate

	a := ScoreRisk(c)
	if !almostEqual(a.Score, 0.20*1.3+0.10) {
		t.Errorf("score = %.3f, want 0.36", a.Score)
	}
	if a.Level != RiskLow {
		t.Errorf("level = %s, want low", a.Level)
	}
}

func TestScoreRiskVerySevereChestPainClampsHigh(t *testing.T) {
	c := baseCase()
	c.ComplaintCategory = ComplaintChestPain
	c.Severity = SeverityVerySevere
	c.Indicators["crushing_chest_pain"] = true

	a := ScoreRisk(c)
	if a.Score != scoreCeiling {
		t.Errorf("score = %.3f, want clamped to %.2f", a.Score, scoreCeiling)
	}
	if a.Level != RiskHigh {
		t.Errorf("level = %s, want high", a.Level)
	}
	if a.Confidence != maxConfidence {
		t.Errorf("confidence = %.3f, want capped at %.2f", a.Confidence, maxConfidence)
	}
}

func TestScoreRiskUnknownComplaintUsesNeutralWeight(t *testing.T) {
	c := baseCase()
	c.ComplaintCategory = ""
	a := ScoreRisk(c)
	if !almostEqual(a.Score, neutralComplaintWeight) {
		t.Errorf("score = %.3f, want neutral %.2f", a.Score, neutralComplaintWeight)
	}
	if len(a.Factors) == 0 || a.Factors[0].Name != "complaint_other" {
		t.Errorf("neutral complaint factor = %v", a.Factors)
	}
}

func TestScoreRiskAgeMultiplierScalesBaseOnly(t *testing.T) {
	adult := baseCase()
	adult.ComplaintCategory = ComplaintFever
	adult.Severity = SeveritySevere

	elderly := baseCase()
	elderly.AgeGroup = AgeElderly
	elderly.ComplaintCategory = ComplaintFever
	elderly.Severity = SeveritySevere

	base, aged := ScoreRisk(adult), ScoreRisk(elderly)
	// The severity addend is identical; only the complaint base grows.
	if !almostEqual(aged.Score-base.Score, 0.20*0.2) {
		t.Errorf("elderly delta = %.3f, want 0.04", aged.Score-base.Score)
	}
}

func TestScoreRiskIndicatorCombos(t *testing.T) {
	c := baseCase()
	c.ComplaintCategory = ComplaintBreathing
	c.Indicators["difficulty_breathing"] = true
	c.Indicators["chest_indrawing"] = true

	a := ScoreRisk(c)
	// base 0.40 + 0.25 + 0.20 + combo 0.15
	if !almostEqual(a.Score, 1.0) {
		t.Errorf("score = %.3f, want 1.0", a.Score)
	}
	found := false
	for _, f := range a.Factors {
		if f.Name == "combo_breathing_difficulty_with_chest_indrawing" {
			found = true
		}
	}
	if !found {
		t.Errorf("combo factor missing: %v", a.Factors)
	}
}

func TestScoreRiskContextContributions(t *testing.T) {
	c := baseCase()
	c.ComplaintCategory = ComplaintFever
	c.PregnancyStatus = PregnancyYes
	c.ChronicConditions = []string{"diabetes"}
	c.Medications = []string{"insulin"}
	c.Immunocompromised = true

	a := ScoreRisk(c)
	want := 0.20 + 0.08 + 0.05 + 0.05 + 0.03
	if !almostEqual(a.Score, want) {
		t.Errorf("score = %.3f, want %.3f", a.Score, want)
	}
}

func TestScoreRiskLevelThresholds(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Case)
		want  RiskLevel
	}{
		{"just below medium", func(c *Case) {
			c.ComplaintCategory = ComplaintHeadache
			c.Severity = SeverityModerate // 0.35
		}, RiskLow},
		{"at medium threshold", func(c *Case) {
			c.ComplaintCategory = ComplaintBreathing // 0.40
		}, RiskMedium},
		{"at high threshold", func(c *Case) {
			c.ComplaintCategory = ComplaintChestPain
			c.Severity = SeveritySevere // 0.70
		}, RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseCase()
			tt.setup(c)
			if got := ScoreRisk(c).Level; got != tt.want {
				t.Errorf("level = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestScoreConfidenceTracksThresholdDistance(t *testing.T) {
	// Score right on a threshold gives the minimum confidence.
	if got := scoreConfidence(mediumThreshold); !almostEqual(got, 0.5) {
		t.Errorf("confidence at threshold = %.3f, want 0.5", got)
	}
	// Mid-band score scores higher than a borderline one.
	if scoreConfidence(0.55) <= scoreConfidence(0.42) {
		t.Error("confidence should grow with distance from the nearest threshold")
	}
	if got := scoreConfidence(1.0); got != maxConfidence {
		t.Errorf("confidence = %.3f, want capped", got)
	}
}

func TestScoreRiskFactorsRankedByWeight(t *testing.T) {
	c := baseCase()
	c.ComplaintCategory = ComplaintFever
	c.Severity = SeveritySevere
	c.Duration = Duration4to7Days
	c.Indicators["high_fever"] = true

	a := ScoreRisk(c)
	for i := 1; i < len(a.Factors); i++ {
		if a.Factors[i].Weight > a.Factors[i-1].Weight {
			t.Errorf("factors not ranked: %v", a.Factors)
		}
	}
}

func TestScoreRiskDeterministic(t *testing.T) {
	c := baseCase()
	c.ComplaintCategory = ComplaintDiarrhea
	c.Severity = SeverityModerate
	c.Indicators["sunken_eyes"] = true
	c.Indicators["no_urination"] = true

	first := ScoreRisk(c)
	for i := 0; i < 10; i++ {
		again := ScoreRisk(c)
		if again.Score != first.Score || again.Level != first.Level || len(again.Factors) != len(first.Factors) {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
		for j := range first.Factors {
			if again.Factors[j] != first.Factors[j] {
				t.Fatalf("factor order unstable at %d: %v vs %v", j, again.Factors[j], first.Factors[j])
			}
		}
	}
}
