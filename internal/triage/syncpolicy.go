package triage

import (
	"fmt"

	"github.com/vitalwatch/platform/internal/shared/errors"
)

// SyncPolicy maps a stability index to a telemetry cadence ("smart burst").
//
// Polling cost is the scarce resource: unstable patients stream near
// real-time while stable patients back off to save device battery and
// network load. The boundary is the same threshold Classify uses for the
// major category, so every major-or-worse patient gets emergency cadence.
func (e *Engine) SyncPolicy(stabilityIndex int) (SyncPolicy, error) {
	if stabilityIndex < 0 || stabilityIndex > 100 {
		return SyncPolicy{}, errors.InvalidInput("stabilityIndex",
			fmt.Sprintf("stability index %d outside [0,100]", stabilityIndex))
	}

	if stabilityIndex < e.cfg.StabilityThreshold {
		return SyncPolicy{
			Mode:     ModeEmergency,
			Interval: Duration(e.cfg.EmergencyInterval),
		}, nil
	}

	return SyncPolicy{
		Mode:     ModePowerSave,
		Interval: Duration(e.cfg.PowerSaveInterval),
	}, nil
}
