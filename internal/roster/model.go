package roster

import (
	"time"

	"github.com/vitalwatch/platform/internal/triage"
)

// Entry is one patient row in a roster snapshot: the scored metric plus the
// derived severity category and sync policy. Category and policy are never
// stored; they are recomputed on every snapshot build.
type Entry struct {
	triage.PatientMetric
	Category triage.StatusCategory `json:"category"`
	Policy   triage.SyncPolicy     `json:"syncPolicy"`
}

// Snapshot is one consistent view of the monitored roster, ordered by
// severity (critical first) and annotated with shortage predictions.
type Snapshot struct {
	GeneratedAt time.Time                     `json:"generated_at"`
	Entries     []Entry                       `json:"entries"`
	Shortages   []triage.ShortageReport       `json:"shortages"`
	Totals      map[triage.StatusCategory]int `json:"totals"`
	Unscored    int                           `json:"unscored,omitempty"`
}

// AtRisk reports whether the entry's patient is deteriorating in a way that
// counts toward sector shortage prediction.
func (e Entry) AtRisk() bool {
	return e.Trend == triage.TrendDown
}
