package triage

import (
	"strings"
	"testing"
)

func lowAssessment() *RiskAssessment {
	return &RiskAssessment{Score: 0.25, Level: RiskLow, Confidence: 0.72}
}

func noDetection() *DetectionResult {
	return &DetectionResult{}
}

func TestAdjustContextNoModifiers(t *testing.T) {
	adj := AdjustContext(baseCase(), lowAssessment(), noDetection())
	if adj.Total != 0 {
		t.Errorf("total = %.3f, want 0", adj.Total)
	}
	if adj.AdjustedLevel != RiskLow {
		t.Errorf("level = %s, want low", adj.AdjustedLevel)
	}
	if adj.Reasoning != "no clinical context adjustment" {
		t.Errorf("reasoning = %q", adj.Reasoning)
	}
}

func TestAdjustContextAgeModifier(t *testing.T) {
	c := baseCase()
	c.AgeGroup = AgeNewborn
	adj := AdjustContext(c, lowAssessment(), noDetection())
	if adj.AgeModifier != 0.15 {
		t.Errorf("age modifier = %.3f, want 0.15", adj.AgeModifier)
	}
	// 0.15 is exactly one level step.
	if adj.AdjustedLevel != RiskMedium {
		t.Errorf("level = %s, want medium", adj.AdjustedLevel)
	}
}

func TestAdjustContextPregnancyScalesWithSeverity(t *testing.T) {
	tests := []struct {
		name     string
		status   PregnancyStatus
		severity Severity
		want     float64
	}{
		{"confirmed severe", PregnancyYes, SeveritySevere, 0.15},
		{"confirmed moderate", PregnancyYes, SeverityModerate, 0.10},
		{"confirmed mild", PregnancyYes, SeverityMild, 0.05},
		{"possible severe", PregnancyPossible, SeveritySevere, 0.075},
		{"not pregnant", PregnancyNo, SeveritySevere, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseCase()
			c.PregnancyStatus = tt.status
			c.Severity = tt.severity
			adj := AdjustContext(c, lowAssessment(), noDetection())
			if adj.PregnancyModifier != tt.want {
				t.Errorf("pregnancy modifier = %.3f, want %.3f", adj.PregnancyModifier, tt.want)
			}
		})
	}
}

func TestAdjustContextChronicSynergy(t *testing.T) {
	c := baseCase()
	c.ComplaintCategory = ComplaintChestPain
	c.ChronicConditions = []string{"heart_disease"}
	adj := AdjustContext(c, lowAssessment(), noDetection())
	if adj.ChronicModifier != 0.10+0.10 {
		t.Errorf("chronic modifier = %.3f, want 0.20", adj.ChronicModifier)
	}
}

func TestAdjustContextUnknownChronicConditionGenericWeight(t *testing.T) {
	c := baseCase()
	c.ChronicConditions = []string{"rare_syndrome"}
	adj := AdjustContext(c, lowAssessment(), noDetection())
	if adj.ChronicModifier != genericChronicModifier {
		t.Errorf("chronic modifier = %.3f, want %.3f", adj.ChronicModifier, genericChronicModifier)
	}
}

func TestAdjustContextMedicationHazard(t *testing.T) {
	c := baseCase()
	c.ComplaintCategory = ComplaintBleeding
	c.Medications = []string{"blood_thinners"}
	adj := AdjustContext(c, lowAssessment(), noDetection())
	if adj.MedicationModifier != 0.03+0.12 {
		t.Errorf("medication modifier = %.3f, want 0.15", adj.MedicationModifier)
	}
}

func TestAdjustContextTotalCapped(t *testing.T) {
	c := baseCase()
	c.AgeGroup = AgeElderly
	c.ChronicConditions = []string{"heart_disease", "hiv", "diabetes", "kidney_disease", "tb"}
	c.Immunocompromised = true
	c.Medications = []string{"blood_thinners"}
	adj := AdjustContext(c, lowAssessment(), noDetection())
	if adj.Total != maxTotalAdjustment {
		t.Errorf("total = %.3f, want capped at %.2f", adj.Total, maxTotalAdjustment)
	}
	// 0.5 / 0.15 is three steps; from low that saturates at high.
	if adj.AdjustedLevel != RiskHigh {
		t.Errorf("level = %s, want high", adj.AdjustedLevel)
	}
}

func TestAdjustContextNeverLowersLevel(t *testing.T) {
	assessment := &RiskAssessment{Score: 0.85, Level: RiskHigh, Confidence: 0.72}
	adj := AdjustContext(baseCase(), assessment, noDetection())
	if adj.AdjustedLevel != RiskHigh {
		t.Errorf("level = %s, adjustment must never lower the scorer's level", adj.AdjustedLevel)
	}
}

func TestAdjustContextEmergencyOverrideForcesHigh(t *testing.T) {
	detection := &DetectionResult{HasRedFlags: true, EmergencyOverride: true}
	adj := AdjustContext(baseCase(), lowAssessment(), detection)
	if adj.AdjustedLevel != RiskHigh {
		t.Errorf("level = %s, emergency override must force high", adj.AdjustedLevel)
	}
}

func TestAdjustContextReasoningListsNonZeroFactors(t *testing.T) {
	c := baseCase()
	c.AgeGroup = AgeElderly
	c.Immunocompromised = true
	adj := AdjustContext(c, lowAssessment(), noDetection())
	for _, want := range []string{"age risk", "immunocompromise"} {
		if !strings.Contains(adj.Reasoning, want) {
			t.Errorf("reasoning %q missing %q", adj.Reasoning, want)
		}
	}
	if strings.Contains(adj.Reasoning, "medication") {
		t.Errorf("reasoning should omit zero factors: %q", adj.Reasoning)
	}
}

func TestAdjustContextStepBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		total func(c *Case)
		want  RiskLevel
	}{
		{"below one step", func(c *Case) {
			c.AgeGroup = AgeChild1to5 // 0.05
		}, RiskLow},
		{"one step", func(c *Case) {
			c.AgeGroup = AgeNewborn // 0.15
		}, RiskMedium},
		{"two steps", func(c *Case) {
			c.AgeGroup = AgeNewborn // 0.15
			c.ChronicConditions = []string{"heart_disease", "hiv"} // +0.20 = 0.35
		}, RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseCase()
			tt.total(c)
			adj := AdjustContext(c, lowAssessment(), noDetection())
			if adj.AdjustedLevel != tt.want {
				t.Errorf("level = %s (total %.3f), want %s", adj.AdjustedLevel, adj.Total, tt.want)
			}
		})
	}
}
