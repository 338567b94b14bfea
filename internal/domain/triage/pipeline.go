package triage

import (
	"time"
)

// Run executes the five triage stages over a working copy of the case and
// returns the complete result. The input case is not touched; the copy in
// the result carries the accumulated danger signs and overwritten risk
// fields, ready to be committed by the caller. Given an identical snapshot,
// Run is deterministic apart from the decision ID and timestamps, which do
// not affect the decision content.
func Run(c *Case) (*PipelineResult, error) {
	work := c.Clone()

	detection := Detect(work)
	assessment := ScoreRisk(work)
	adjustment := AdjustContext(work, assessment, detection)
	decision := Synthesize(work, detection, assessment, adjustment)

	// Commit stage outputs onto the working copy. Findings accumulate and
	// are never removed; risk fields are overwritten each run.
	for _, f := range detection.Findings {
		if !work.HasDangerSign(f.Name) {
			work.DangerSigns = append(work.DangerSigns, f.Name)
		}
	}
	work.HasRedFlags = detection.HasRedFlags
	work.RiskScore = assessment.Score
	work.RiskLevel = decision.RiskLevel
	work.RiskConfidence = assessment.Confidence
	work.FollowUpPriority = decision.FollowUpPriority
	work.Status = CaseStatusDecided
	work.Version++
	work.UpdatedAt = time.Now().UTC()

	return &PipelineResult{
		Case:       work,
		Detection:  detection,
		Assessment: assessment,
		Adjustment: adjustment,
		Decision:   decision,
	}, nil
}
