package triage

import (
	"fmt"

	"github.com/vitalwatch/platform/internal/shared/errors"
)

// Classify maps a stability index and NEWS2 score to a status category.
//
// NEWS2 is the validated clinical deterioration score and takes precedence
// at the top tier; the stability index is the secondary signal with the
// configured threshold separating major from lower categories. Ties resolve
// toward the more severe category: the classifier never under-triages.
//
// Out-of-range inputs are rejected, never clamped. A silently reinterpreted
// score in a triage system is a patient-safety risk.
func (e *Engine) Classify(stabilityIndex, news2Score int) (StatusCategory, error) {
	if stabilityIndex < 0 || stabilityIndex > 100 {
		return "", errors.InvalidInput("stabilityIndex",
			fmt.Sprintf("stability index %d outside [0,100]", stabilityIndex))
	}
	if news2Score < 0 || news2Score > 3 {
		return "", errors.InvalidInput("news2Score",
			fmt.Sprintf("NEWS2 score %d outside {0,1,2,3}", news2Score))
	}

	switch {
	// Maximal NEWS2 overrides any stability reading; a zero stability
	// index is a fail-safe critical regardless of NEWS2.
	case news2Score == 3 || stabilityIndex == 0:
		return StatusCritical, nil
	case news2Score == 2 || stabilityIndex < e.cfg.StabilityThreshold:
		return StatusMajor, nil
	case news2Score == 1:
		return StatusMinor, nil
	default:
		return StatusStable, nil
	}
}

// Rank orders categories by severity, highest first. Used for roster
// sorting so critical rows surface at the top.
func Rank(c StatusCategory) int {
	switch c {
	case StatusCritical:
		return 0
	case StatusMajor:
		return 1
	case StatusMinor:
		return 2
	default:
		return 3
	}
}
