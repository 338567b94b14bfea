package triage

import (
	"fmt"
	"strings"
)

// legacyFields maps deprecated submission keys onto their current names.
// Values under the current name always win over a legacy alias.
var legacyFields = map[string]string{
	"age_band":        "age_group",
	"gender":          "sex",
	"pregnant":        "pregnancy_status",
	"location":        "district",
	"main_complaint":  "complaint_text",
	"symptom_group":   "complaint_category",
	"symptom_length":  "duration",
	"medication_list": "medications",
}

// Normalize validates and cleans a raw intake submission and returns a fully
// keyed case record. It fails with a *ValidationError listing every violation;
// on failure nothing downstream runs. Unspecified optional fields receive
// documented defaults (empty indicator map, patient_relation "self").
func Normalize(raw map[string]any) (*Case, error) {
	in := make(map[string]any, len(raw))
	for k, v := range raw {
		if current, ok := legacyFields[k]; ok {
			if _, exists := raw[current]; !exists {
				in[current] = v
			}
			continue
		}
		in[k] = v
	}

	verr := &ValidationError{}
	c := &Case{
		Indicators:      map[string]bool{},
		PatientRelation: "self",
		Status:          CaseStatusOpen,
	}

	c.PatientToken = stringField(in, "patient_token")
	if c.PatientToken == "" {
		verr.add("patient_token", "required")
	}

	c.AgeGroup = AgeGroup(stringField(in, "age_group"))
	if c.AgeGroup == "" {
		verr.add("age_group", "required")
	} else if !validAgeGroups[c.AgeGroup] {
		verr.add("age_group", fmt.Sprintf("unknown value %q", c.AgeGroup))
	}

	c.Sex = Sex(stringField(in, "sex"))
	if c.Sex == "" {
		verr.add("sex", "required")
	} else if !validSexes[c.Sex] {
		verr.add("sex", fmt.Sprintf("unknown value %q", c.Sex))
	}

	c.District = stringField(in, "district")
	if c.District == "" {
		verr.add("district", "required")
	}

	for _, consent := range []struct {
		key string
		dst *bool
	}{
		{"consent_care", &c.ConsentCare},
		{"consent_data", &c.ConsentData},
		{"consent_follow_up", &c.ConsentFollowUp},
	} {
		v, ok := boolField(in, consent.key)
		if !ok {
			verr.add(consent.key, "required")
			continue
		}
		if !v {
			verr.add(consent.key, "consent must be granted")
		}
		*consent.dst = v
	}

	c.ComplaintText = strings.TrimSpace(stringField(in, "complaint_text"))
	c.ComplaintCategory = ComplaintCategory(stringField(in, "complaint_category"))
	if c.ComplaintCategory == "" && c.ComplaintText == "" {
		verr.add("complaint", "at least one of complaint_text or complaint_category is required")
	}
	if c.ComplaintCategory != "" && !validComplaints[c.ComplaintCategory] {
		verr.add("complaint_category", fmt.Sprintf("unknown value %q", c.ComplaintCategory))
	}

	c.PregnancyStatus = PregnancyStatus(stringField(in, "pregnancy_status"))
	switch {
	case c.PregnancyStatus == "":
		c.PregnancyStatus = defaultPregnancyStatus(c.Sex, c.AgeGroup)
	case !validPregnancyStatuses[c.PregnancyStatus]:
		verr.add("pregnancy_status", fmt.Sprintf("unknown value %q", c.PregnancyStatus))
	}
	// Inconsistent state is rejected, never silently corrected.
	if c.Sex == SexMale && (c.PregnancyStatus == PregnancyYes || c.PregnancyStatus == PregnancyPossible) {
		verr.add("pregnancy_status", "inconsistent with sex male")
	}

	c.Severity = Severity(stringField(in, "severity"))
	if c.Severity != "" && !validSeverities[c.Severity] {
		verr.add("severity", fmt.Sprintf("unknown value %q", c.Severity))
	}
	c.Duration = Duration(stringField(in, "duration"))
	if c.Duration != "" && !validDurations[c.Duration] {
		verr.add("duration", fmt.Sprintf("unknown value %q", c.Duration))
	}
	c.Progression = Progression(stringField(in, "progression"))
	if c.Progression != "" && !validProgressions[c.Progression] {
		verr.add("progression", fmt.Sprintf("unknown value %q", c.Progression))
	}

	if rel := stringField(in, "patient_relation"); rel != "" {
		c.PatientRelation = rel
	}

	if rawInd, ok := in["indicators"]; ok {
		ind, err := boolMap(rawInd)
		if err != nil {
			verr.add("indicators", err.Error())
		} else {
			c.Indicators = ind
		}
	}

	c.ChronicConditions = stringList(in, "chronic_conditions", verr)
	c.Medications = stringList(in, "medications", verr)

	if v, ok := boolField(in, "immunocompromised"); ok {
		c.Immunocompromised = v
	} else if _, present := in["immunocompromised"]; present {
		verr.add("immunocompromised", "must be a boolean")
	}

	if lat, ok := floatField(in, "latitude"); ok && (lat < -90 || lat > 90) {
		verr.add("latitude", "out of range")
	}
	if lng, ok := floatField(in, "longitude"); ok && (lng < -180 || lng > 180) {
		verr.add("longitude", "out of range")
	}

	if len(verr.Violations) > 0 {
		return nil, verr
	}
	return c, nil
}

func defaultPregnancyStatus(sex Sex, age AgeGroup) PregnancyStatus {
	if sex == SexMale {
		return PregnancyNotApplicable
	}
	// Pre-teen age groups cannot meaningfully report pregnancy.
	if r := ageRank(age); r >= 0 && r < ageRank(AgeTeen) {
		return PregnancyNotApplicable
	}
	return PregnancyNo
}

func stringField(in map[string]any, key string) string {
	v, ok := in[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(strings.ToLower(s))
}

func boolField(in map[string]any, key string) (bool, bool) {
	v, ok := in[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func floatField(in map[string]any, key string) (float64, bool) {
	switch v := in[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func boolMap(raw any) (map[string]bool, error) {
	out := map[string]bool{}
	switch m := raw.(type) {
	case map[string]bool:
		for k, v := range m {
			out[strings.ToLower(k)] = v
		}
	case map[string]any:
		for k, v := range m {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("entry %q must be a boolean", k)
			}
			out[strings.ToLower(k)] = b
		}
	default:
		return nil, fmt.Errorf("must be a map of booleans")
	}
	return out, nil
}

func stringList(in map[string]any, key string, verr *ValidationError) []string {
	raw, ok := in[key]
	if !ok {
		return nil
	}
	var out []string
	switch list := raw.(type) {
	case []string:
		for _, s := range list {
			out = append(out, strings.ToLower(strings.TrimSpace(s)))
		}
	case []any:
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				verr.add(key, "must be a list of strings")
				return nil
			}
			out = append(out, strings.ToLower(strings.TrimSpace(s)))
		}
	case string:
		// Channel adapters sometimes submit a single value.
		if list != "" {
			out = append(out, strings.ToLower(strings.TrimSpace(list)))
		}
	default:
		verr.add(key, "must be a list of strings")
	}
	return out
}
