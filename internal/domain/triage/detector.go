package triage

import (
	"sort"
	"strings"
)

// keywordConfidence is the reduced confidence assigned to findings detected
// only through free-text keyword matching.
const keywordConfidence = 0.8

// Detect scans the case for danger signs. It runs every evidence path in a
// fixed order — structured indicators, free-text keywords, severity/duration
// escalation, age- and pregnancy-specific rules, and prior case state — and
// merges the results. Detection is idempotent: re-running on the same
// snapshot yields the same findings, and signs already on the case record
// are always re-reported.
func Detect(c *Case) *DetectionResult {
	found := map[string]Finding{}

	record := func(name string, source DetectionSource, confidence float64) {
		sign, ok := signIndex[name]
		if !ok {
			return
		}
		if !sign.ageApplies(c.AgeGroup) {
			return
		}
		if sign.Category == CategoryPregnancy && !pregnancyPossible(c) {
			return
		}
		if existing, ok := found[name]; ok && existing.Confidence >= confidence {
			return
		}
		found[name] = Finding{
			Name:       name,
			Category:   sign.Category,
			Severity:   sign.Severity,
			Source:     source,
			Confidence: confidence,
		}
	}

	// (a) Structured indicators.
	for indicator, set := range c.Indicators {
		if !set {
			continue
		}
		if sign, ok := indicatorSigns[indicator]; ok {
			record(sign, SourceIndicator, 1.0)
		}
	}

	// (b) Free-text keyword scan, case-insensitive substring match.
	if text := strings.ToLower(c.ComplaintText); text != "" {
		for _, sign := range signCatalog {
			if _, already := found[sign.Name]; already {
				continue
			}
			for _, kw := range sign.Keywords {
				if strings.Contains(text, kw) {
					record(sign.Name, SourceKeyword, keywordConfidence)
					break
				}
			}
		}
	}

	// (c) Severity/duration escalation.
	if c.Severity == SeverityVerySevere {
		if sign, ok := escalationSigns[c.ComplaintCategory]; ok {
			record(sign, SourceEscalation, 1.0)
		}
	}
	if c.Severity.AtLeast(SeveritySevere) && c.Duration.BeyondOneWeek() {
		record("prolonged_illness", SourceEscalation, 1.0)
	}

	// (d) Age-specific and pregnancy-specific rule sets.
	applyAgeRules(c, record)
	applyPregnancyRules(c, record)

	// (e) Merge signs already flagged on the case record.
	for _, name := range c.DangerSigns {
		record(name, SourcePriorState, 1.0)
	}

	findings := make([]Finding, 0, len(found))
	for _, f := range found {
		findings = append(findings, f)
	}
	sort.Slice(findings, func(i, j int) bool {
		ri, rj := findingSeverityRank[findings[i].Severity], findingSeverityRank[findings[j].Severity]
		if ri != rj {
			return ri > rj
		}
		return findings[i].Name < findings[j].Name
	})

	res := &DetectionResult{
		HasRedFlags: len(findings) > 0,
		Findings:    findings,
	}

	criticals, urgents := 0, 0
	for _, f := range findings {
		if res.HighestSeverity == "" || findingSeverityRank[f.Severity] > findingSeverityRank[res.HighestSeverity] {
			res.HighestSeverity = f.Severity
		}
		switch f.Severity {
		case FindingCritical:
			criticals++
		case FindingUrgent:
			urgents++
		}
	}
	res.EmergencyOverride = criticals >= 1 || urgents >= 2

	switch res.HighestSeverity {
	case FindingCritical:
		res.FacilityHint = FacilityEmergency
	case FindingUrgent:
		res.FacilityHint = FacilityHospital
	case FindingWarning:
		res.FacilityHint = FacilityHealthCenter
	}

	return res
}

func pregnancyPossible(c *Case) bool {
	return c.PregnancyStatus == PregnancyYes || c.PregnancyStatus == PregnancyPossible
}

// applyAgeRules adds findings only reachable through age-specific logic.
func applyAgeRules(c *Case, record func(string, DetectionSource, float64)) {
	young := c.AgeGroup == AgeNewborn || c.AgeGroup == AgeInfant
	if !young {
		return
	}
	// Fever in a newborn or young infant is an emergency once it is more
	// than mild-to-moderate; a moderate fever alone is handled by the
	// age-risk rules downstream.
	if c.ComplaintCategory == ComplaintFever && c.Severity.AtLeast(SeveritySevere) {
		record("newborn_fever", SourceAgeRule, 1.0)
	}
	if c.ComplaintCategory == ComplaintFeeding && c.Severity.AtLeast(SeveritySevere) {
		record("poor_feeding", SourceAgeRule, 1.0)
	}
	if c.ComplaintCategory == ComplaintDiarrhea && c.Severity.AtLeast(SeveritySevere) {
		record("severe_dehydration", SourceAgeRule, 1.0)
	}
}

// applyPregnancyRules adds findings only reachable through pregnancy logic.
func applyPregnancyRules(c *Case, record func(string, DetectionSource, float64)) {
	if !pregnancyPossible(c) {
		return
	}
	if c.ComplaintCategory == ComplaintBleeding && c.Severity.AtLeast(SeveritySevere) {
		record("heavy_vaginal_bleeding", SourcePregnancyRule, 1.0)
	}
	if c.ComplaintCategory == ComplaintConvulsions {
		record("eclampsia", SourcePregnancyRule, 1.0)
	}
	if c.ComplaintCategory == ComplaintAbdominalPain && c.Severity.AtLeast(SeveritySevere) {
		record("severe_pregnancy_pain", SourcePregnancyRule, 1.0)
	}
	if c.ComplaintCategory == ComplaintHeadache && c.Severity.AtLeast(SeveritySevere) {
		record("preeclampsia_signs", SourcePregnancyRule, 1.0)
	}
}
