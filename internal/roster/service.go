package roster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/patient"
	"github.com/vitalwatch/platform/internal/scoring"
	"github.com/vitalwatch/platform/internal/shared/metrics"
	"github.com/vitalwatch/platform/internal/triage"
)

// listPageSize pages through the registry when building a snapshot.
const listPageSize = 500

// PatientSource lists registered patients. Satisfied by *patient.Repository.
type PatientSource interface {
	List(ctx context.Context, filter patient.ListPatientsFilter) ([]*patient.Patient, int, error)
}

// Scorer supplies per-patient vitals scores. Satisfied by *scoring.Client.
type Scorer interface {
	ScoreBatch(ctx context.Context, patients []scoring.ScoreRequest) ([]scoring.VitalScore, error)
}

// Service builds roster snapshots: it joins the patient registry with the
// scoring service, derives severity and sync policy per patient through the
// triage engine, and predicts sector shortages.
type Service struct {
	patients PatientSource
	scorer   Scorer
	engine   *triage.Engine
	cache    *Cache
	logger   *zap.Logger
}

// NewService creates a roster service. cache may be nil, in which case every
// Snapshot call rebuilds.
func NewService(patients PatientSource, scorer Scorer, engine *triage.Engine, cache *Cache, logger *zap.Logger) *Service {
	return &Service{
		patients: patients,
		scorer:   scorer,
		engine:   engine,
		cache:    cache,
		logger:   logger,
	}
}

// Snapshot returns the current roster view, served from cache when fresh.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("Snapshot cache read failed, rebuilding", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}
	return s.Refresh(ctx)
}

// Refresh rebuilds the snapshot from the registry and scoring service,
// bypassing and repopulating the cache.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	started := time.Now()

	snap, err := s.build(ctx)
	if err != nil {
		metrics.RecordRosterRefresh("error", time.Since(started))
		return nil, err
	}
	metrics.RecordRosterRefresh("ok", time.Since(started))

	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.logger.Warn("Failed to cache roster snapshot", zap.Error(err))
		}
	}
	return snap, nil
}

func (s *Service) build(ctx context.Context) (*Snapshot, error) {
	registered, err := s.listAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	requests := make([]scoring.ScoreRequest, 0, len(registered))
	for _, p := range registered {
		requests = append(requests, scoring.ScoreRequest{PatientID: p.ID, Sector: p.Sector})
	}

	scores, err := s.scorer.ScoreBatch(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("failed to score roster: %w", err)
	}
	scoreByPatient := make(map[string]scoring.VitalScore, len(scores))
	for _, sc := range scores {
		scoreByPatient[sc.PatientID.String()] = sc
	}

	snap := &Snapshot{
		GeneratedAt: time.Now().UTC(),
		Entries:     make([]Entry, 0, len(registered)),
		Totals:      make(map[triage.StatusCategory]int),
	}

	for _, p := range registered {
		score, ok := scoreByPatient[p.ID.String()]
		if !ok {
			// No vitals yet; the patient stays off the roster until the
			// scoring service has seen a reading.
			snap.Unscored++
			continue
		}

		category, err := s.engine.Classify(score.StabilityIndex, score.News2Score)
		if err != nil {
			// An out-of-range score is a scoring-service defect. Surface it
			// loudly rather than clamping it into a plausible category.
			s.logger.Error("Rejecting out-of-range score",
				zap.String("patient_id", p.ID.String()),
				zap.Int("stability_index", score.StabilityIndex),
				zap.Int("news2_score", score.News2Score),
				zap.Error(err),
			)
			snap.Unscored++
			continue
		}
		policy, err := s.engine.SyncPolicy(score.StabilityIndex)
		if err != nil {
			snap.Unscored++
			continue
		}

		metrics.RecordClassification(string(category))
		metrics.RecordSyncMode(string(policy.Mode))

		snap.Entries = append(snap.Entries, Entry{
			PatientMetric: triage.PatientMetric{
				ID:             p.ID,
				Name:           p.FullName(),
				Age:            p.Age,
				Condition:      p.Condition,
				StabilityIndex: score.StabilityIndex,
				News2Score:     score.News2Score,
				Trend:          score.Trend,
				Sector:         p.Sector,
			},
			Category: category,
			Policy:   policy,
		})
		snap.Totals[category]++
	}

	sort.Slice(snap.Entries, func(i, j int) bool {
		ri, rj := triage.Rank(snap.Entries[i].Category), triage.Rank(snap.Entries[j].Category)
		if ri != rj {
			return ri < rj
		}
		if snap.Entries[i].StabilityIndex != snap.Entries[j].StabilityIndex {
			return snap.Entries[i].StabilityIndex < snap.Entries[j].StabilityIndex
		}
		return snap.Entries[i].Name < snap.Entries[j].Name
	})

	snap.Shortages = s.engine.PredictShortages(projectMetrics(snap.Entries))

	return snap, nil
}

// projectMetrics strips snapshot entries back to bare metrics for the predictor.
func projectMetrics(entries []Entry) []triage.PatientMetric {
	out := make([]triage.PatientMetric, len(entries))
	for i, e := range entries {
		out[i] = e.PatientMetric
	}
	return out
}

func (s *Service) listAll(ctx context.Context) ([]*patient.Patient, error) {
	var all []*patient.Patient
	offset := 0
	for {
		page, total, err := s.patients.List(ctx, patient.ListPatientsFilter{
			Limit:  listPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		offset += len(page)
		if len(page) == 0 || offset >= total {
			return all, nil
		}
	}
}
