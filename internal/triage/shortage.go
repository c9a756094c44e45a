package triage

import (
	"sort"
)

// PredictShortages aggregates per-sector trend data over a roster snapshot
// and flags sectors at risk of an ambulance/resource shortage. Clusters of
// simultaneously deteriorating patients in one sector are the leading
// indicator of a localized transport demand spike.
//
// Sectors with no deteriorating patients are omitted entirely; an empty
// result means "no predicted shortages". Metrics without a sector label are
// bucketed under UnknownSector rather than dropped.
func (e *Engine) PredictShortages(patients []PatientMetric) []ShortageReport {
	type sectorStats struct {
		total  int
		atRisk int
	}

	stats := make(map[string]*sectorStats)
	for _, p := range patients {
		sector := p.Sector
		if sector == "" {
			sector = UnknownSector
		}
		s, ok := stats[sector]
		if !ok {
			s = &sectorStats{}
			stats[sector] = s
		}
		s.total++
		if p.Trend == TrendDown {
			s.atRisk++
		}
	}

	reports := make([]ShortageReport, 0, len(stats))
	for sector, s := range stats {
		if s.atRisk == 0 {
			continue
		}
		reports = append(reports, ShortageReport{
			Sector:         sector,
			PatientsAtRisk: s.atRisk,
			Severity:       e.shortageSeverity(s.atRisk, s.total),
		})
	}

	// Deterministic ordering: most at-risk first, sector name as tiebreak.
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].PatientsAtRisk != reports[j].PatientsAtRisk {
			return reports[i].PatientsAtRisk > reports[j].PatientsAtRisk
		}
		return reports[i].Sector < reports[j].Sector
	})

	return reports
}

// shortageSeverity tiers a sector: high when the at-risk count reaches the
// absolute threshold or the at-risk share reaches the ratio threshold,
// moderate otherwise.
func (e *Engine) shortageSeverity(atRisk, total int) ShortageSeverity {
	if atRisk >= e.cfg.ShortageHighCount {
		return ShortageHigh
	}
	if total > 0 && float64(atRisk)/float64(total) >= e.cfg.ShortageHighRatio {
		return ShortageHigh
	}
	return ShortageModerate
}
