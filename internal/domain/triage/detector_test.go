package triage

import "testing"

func baseCase() *Case {
	return &Case{
		PatientToken:    "tok-detect",
		AgeGroup:        AgeAdult,
		Sex:             SexFemale,
		PregnancyStatus: PregnancyNo,
		District:        "north",
		Indicators:      map[string]bool{},
	}
}

func findingByName(res *DetectionResult, name string) (Finding, bool) {
	for _, f := range res.Findings {
		if f.Name == name {
			return f, true
		}
	}
	return Finding{}, false
}

func TestDetectNoEvidence(t *testing.T) {
	res := Detect(baseCase())
	if res.HasRedFlags {
		t.Error("no evidence should produce no red flags")
	}
	if res.EmergencyOverride {
		t.Error("no evidence should not trigger emergency override")
	}
	if len(res.Findings) != 0 {
		t.Errorf("unexpected findings: %v", res.Findings)
	}
}

func TestDetectStructuredIndicator(t *testing.T) {
	c := baseCase()
	c.Indicators["unconscious"] = true
	c.Indicators["stiff_neck"] = false

	res := Detect(c)
	f, ok := findingByName(res, "unconscious")
	if !ok {
		t.Fatalf("unconscious not detected: %v", res.Findings)
	}
	if f.Source != SourceIndicator || f.Confidence != 1.0 {
		t.Errorf("source/confidence = %s/%.2f", f.Source, f.Confidence)
	}
	if _, ok := findingByName(res, "stiff_neck"); ok {
		t.Error("false indicator should not produce a finding")
	}
	if !res.EmergencyOverride {
		t.Error("one critical finding must trigger emergency override")
	}
}

func TestDetectIndicatorAlias(t *testing.T) {
	c := baseCase()
	c.Indicators["cold_clammy_skin"] = true
	res := Detect(c)
	if _, ok := findingByName(res, "signs_of_shock"); !ok {
		t.Errorf("alias indicator not mapped onto catalog sign: %v", res.Findings)
	}
}

func TestDetectKeywordMatch(t *testing.T) {
	c := baseCase()
	c.ComplaintText = "my neighbour says she is Bleeding A Lot since this morning"
	res := Detect(c)
	f, ok := findingByName(res, "severe_bleeding")
	if !ok {
		t.Fatalf("keyword not detected: %v", res.Findings)
	}
	if f.Source != SourceKeyword {
		t.Errorf("source = %s, want keyword", f.Source)
	}
	if f.Confidence != keywordConfidence {
		t.Errorf("keyword confidence = %.2f, want %.2f", f.Confidence, keywordConfidence)
	}
}

func TestDetectIndicatorConfidenceBeatsKeyword(t *testing.T) {
	c := baseCase()
	c.Indicators["severe_bleeding"] = true
	c.ComplaintText = "heavy bleeding"
	res := Detect(c)
	f, ok := findingByName(res, "severe_bleeding")
	if !ok {
		t.Fatal("severe_bleeding not detected")
	}
	if f.Source != SourceIndicator || f.Confidence != 1.0 {
		t.Errorf("indicator evidence should win: source=%s confidence=%.2f", f.Source, f.Confidence)
	}
}

func TestDetectSeverityEscalation(t *testing.T) {
	c := baseCase()
	c.ComplaintCategory = ComplaintBreathing
	c.Severity = SeverityVerySevere
	res := Detect(c)
	f, ok := findingByName(res, "unable_to_breathe")
	if !ok {
		t.Fatalf("very_severe breathing should escalate: %v", res.Findings)
	}
	if f.Source != SourceEscalation {
		t.Errorf("source = %s, want escalation", f.Source)
	}
}

func TestDetectProlongedIllness(t *testing.T) {
	c := baseCase()
	c.ComplaintCategory = ComplaintFever
	c.Severity = SeveritySevere
	c.Duration = DurationOver2Weeks
	res := Detect(c)
	if _, ok := findingByName(res, "prolonged_illness"); !ok {
		t.Errorf("severe illness beyond one week should flag prolonged_illness: %v", res.Findings)
	}

	c.Duration = Duration2to3Days
	res = Detect(c)
	if _, ok := findingByName(res, "prolonged_illness"); ok {
		t.Error("short duration must not flag prolonged_illness")
	}
}

func TestDetectAgeGating(t *testing.T) {
	// chest_indrawing is tagged through child_6_12; it must not fire for adults.
	adult := baseCase()
	adult.Indicators["chest_indrawing"] = true
	if _, ok := findingByName(Detect(adult), "chest_indrawing"); ok {
		t.Error("child-tagged sign fired for adult")
	}

	infant := baseCase()
	infant.AgeGroup = AgeInfant
	infant.Indicators["chest_indrawing"] = true
	if _, ok := findingByName(Detect(infant), "chest_indrawing"); !ok {
		t.Error("child-tagged sign must cover younger patients")
	}
}

func TestDetectNewbornFeverRule(t *testing.T) {
	c := baseCase()
	c.AgeGroup = AgeNewborn
	c.ComplaintCategory = ComplaintFever
	c.Severity = SeveritySevere
	res := Detect(c)
	f, ok := findingByName(res, "newborn_fever")
	if !ok {
		t.Fatalf("severe newborn fever should be flagged: %v", res.Findings)
	}
	if f.Source != SourceAgeRule {
		t.Errorf("source = %s, want age_rule", f.Source)
	}

	// Moderate newborn fever is handled by risk scoring, not detection.
	c.Severity = SeverityModerate
	res = Detect(c)
	if res.HasRedFlags {
		t.Errorf("moderate newborn fever should produce no findings: %v", res.Findings)
	}
}

func TestDetectPregnancyGating(t *testing.T) {
	// Pregnancy-category signs require a yes/possible status.
	c := baseCase()
	c.PregnancyStatus = PregnancyNo
	c.Indicators["heavy_vaginal_bleeding"] = true
	if _, ok := findingByName(Detect(c), "heavy_vaginal_bleeding"); ok {
		t.Error("pregnancy sign fired without pregnancy")
	}

	c.PregnancyStatus = PregnancyPossible
	if _, ok := findingByName(Detect(c), "heavy_vaginal_bleeding"); !ok {
		t.Error("pregnancy sign must fire for possible pregnancy")
	}
}

func TestDetectPregnancyConvulsionsImpliesEclampsia(t *testing.T) {
	c := baseCase()
	c.PregnancyStatus = PregnancyYes
	c.ComplaintCategory = ComplaintConvulsions
	res := Detect(c)
	f, ok := findingByName(res, "eclampsia")
	if !ok {
		t.Fatalf("pregnant convulsions should flag eclampsia: %v", res.Findings)
	}
	if f.Source != SourcePregnancyRule {
		t.Errorf("source = %s, want pregnancy_rule", f.Source)
	}
}

func TestDetectEmergencyOverrideTwoUrgent(t *testing.T) {
	c := baseCase()
	c.Indicators["stiff_neck"] = true
	c.Indicators["confusion"] = true
	res := Detect(c)
	if !res.EmergencyOverride {
		t.Errorf("two urgent findings must trigger emergency override: %v", res.Findings)
	}

	single := baseCase()
	single.Indicators["stiff_neck"] = true
	if Detect(single).EmergencyOverride {
		t.Error("a single urgent finding must not trigger emergency override")
	}
}

func TestDetectPriorSignsReReported(t *testing.T) {
	c := baseCase()
	c.DangerSigns = []string{"stiff_neck"}
	res := Detect(c)
	f, ok := findingByName(res, "stiff_neck")
	if !ok {
		t.Fatalf("prior danger sign must be re-reported: %v", res.Findings)
	}
	if f.Source != SourcePriorState {
		t.Errorf("source = %s, want prior_state", f.Source)
	}
}

func TestDetectFindingsSortedBySeverity(t *testing.T) {
	c := baseCase()
	c.Indicators["unconscious"] = true // critical
	c.Indicators["stiff_neck"] = true  // urgent
	c.Severity = SeveritySevere
	c.Duration = Duration1to2Weeks // warning via prolonged_illness
	res := Detect(c)
	if len(res.Findings) < 3 {
		t.Fatalf("expected 3 findings, got %v", res.Findings)
	}
	for i := 1; i < len(res.Findings); i++ {
		prev := findingSeverityRank[res.Findings[i-1].Severity]
		cur := findingSeverityRank[res.Findings[i].Severity]
		if cur > prev {
			t.Errorf("findings not sorted by severity: %v", res.Findings)
		}
	}
	if res.HighestSeverity != FindingCritical {
		t.Errorf("highest severity = %s", res.HighestSeverity)
	}
}

func TestDetectFacilityHint(t *testing.T) {
	tests := []struct {
		name      string
		indicator string
		want      FacilityType
	}{
		{"critical", "unconscious", FacilityEmergency},
		{"urgent", "stiff_neck", FacilityHospital},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseCase()
			c.Indicators[tt.indicator] = true
			if got := Detect(c).FacilityHint; got != tt.want {
				t.Errorf("facility hint = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetectDeterministic(t *testing.T) {
	c := baseCase()
	c.Indicators["high_fever"] = true
	c.Indicators["stiff_neck"] = true
	c.ComplaintText = "confused and burning up for days"

	first := Detect(c)
	for i := 0; i < 10; i++ {
		again := Detect(c)
		if len(again.Findings) != len(first.Findings) {
			t.Fatalf("run %d: finding count changed", i)
		}
		for j := range first.Findings {
			if again.Findings[j] != first.Findings[j] {
				t.Fatalf("run %d: finding %d differs: %v vs %v", i, j, again.Findings[j], first.Findings[j])
			}
		}
	}
}
