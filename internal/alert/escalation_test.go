package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/shared/types"
	"github.com/vitalwatch/platform/internal/triage"
)

type recordedEscalation struct {
	alertID types.ID
	level   int
	target  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []recordedEscalation
}

func (f *fakeNotifier) NotifyEscalation(ctx context.Context, a *Alert, level int, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, recordedEscalation{alertID: a.ID, level: level, target: target})
	return nil
}

func (f *fakeNotifier) escalations() []recordedEscalation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedEscalation(nil), f.sent...)
}

func testAlert(category triage.StatusCategory) *Alert {
	return &Alert{
		ID:        types.NewID(),
		PatientID: types.NewID(),
		Category:  category,
		Status:    StatusOpen,
		Sector:    "north",
	}
}

func fastConfig(timeout time.Duration) EscalationConfig {
	cfg := DefaultEscalationConfig()
	cfg.TimeoutByCategory = map[triage.StatusCategory]time.Duration{
		triage.StatusCritical: timeout,
		triage.StatusMajor:    timeout * 3,
	}
	return cfg
}

func TestEscalateAfterTimeout(t *testing.T) {
	notifier := &fakeNotifier{}
	esc := NewEscalator(notifier, nil, fastConfig(time.Millisecond), zap.NewNop())

	a := testAlert(triage.StatusCritical)
	esc.Register(a)

	time.Sleep(5 * time.Millisecond)
	esc.checkEscalations(context.Background())

	sent := notifier.escalations()
	if len(sent) != 1 {
		t.Fatalf("Expected 1 escalation, got %d", len(sent))
	}
	if sent[0].level != 1 {
		t.Errorf("Expected level 1, got %d", sent[0].level)
	}
	if sent[0].target != "charge_nurse" {
		t.Errorf("Expected charge_nurse target, got %s", sent[0].target)
	}
}

func TestNoEscalationBeforeTimeout(t *testing.T) {
	notifier := &fakeNotifier{}
	esc := NewEscalator(notifier, nil, fastConfig(time.Hour), zap.NewNop())

	esc.Register(testAlert(triage.StatusCritical))
	esc.checkEscalations(context.Background())

	if len(notifier.escalations()) != 0 {
		t.Errorf("Expected no escalations before timeout")
	}
}

func TestAcknowledgeStopsEscalation(t *testing.T) {
	notifier := &fakeNotifier{}
	esc := NewEscalator(notifier, nil, fastConfig(time.Millisecond), zap.NewNop())

	a := testAlert(triage.StatusCritical)
	esc.Register(a)
	esc.Acknowledge(a.ID)

	time.Sleep(5 * time.Millisecond)
	esc.checkEscalations(context.Background())

	if len(notifier.escalations()) != 0 {
		t.Errorf("Expected no escalations after acknowledge")
	}
	if esc.ActiveCount() != 0 {
		t.Errorf("Expected no tracked alerts, got %d", esc.ActiveCount())
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	notifier := &fakeNotifier{}
	esc := NewEscalator(notifier, nil, fastConfig(time.Hour), zap.NewNop())

	a := testAlert(triage.StatusMajor)
	esc.Register(a)
	esc.Register(a)

	if esc.ActiveCount() != 1 {
		t.Errorf("Expected 1 tracked alert, got %d", esc.ActiveCount())
	}
}

func TestEscalationClimbsLadder(t *testing.T) {
	notifier := &fakeNotifier{}
	esc := NewEscalator(notifier, nil, fastConfig(time.Millisecond), zap.NewNop())

	a := testAlert(triage.StatusCritical)
	esc.Register(a)

	// Walk past the max level; the ladder must stop at medical_director.
	for i := 0; i < 6; i++ {
		time.Sleep(3 * time.Millisecond)
		esc.checkEscalations(context.Background())
	}

	sent := notifier.escalations()
	if len(sent) != 3 {
		t.Fatalf("Expected 3 escalations (max level), got %d", len(sent))
	}

	wantTargets := []string{"charge_nurse", "attending_physician", "medical_director"}
	for i, want := range wantTargets {
		if sent[i].level != i+1 {
			t.Errorf("Escalation %d: expected level %d, got %d", i, i+1, sent[i].level)
		}
		if sent[i].target != want {
			t.Errorf("Escalation %d: expected target %s, got %s", i, want, sent[i].target)
		}
	}

	// Still tracked at the top of the ladder.
	if esc.ActiveCount() != 1 {
		t.Errorf("Expected alert still tracked at max level, got %d", esc.ActiveCount())
	}
}

func TestTimeoutShrinksPerLevel(t *testing.T) {
	esc := NewEscalator(&fakeNotifier{}, nil, DefaultEscalationConfig(), zap.NewNop())

	base := esc.baseTimeout(triage.StatusCritical)
	l1 := esc.timeoutForLevel(triage.StatusCritical, 1)
	l2 := esc.timeoutForLevel(triage.StatusCritical, 2)

	if l1 >= base {
		t.Errorf("Expected level 1 timeout below base: %v >= %v", l1, base)
	}
	if l2 >= l1 {
		t.Errorf("Expected level 2 timeout below level 1: %v >= %v", l2, l1)
	}
}

func TestUnknownCategoryFallsBackToMajorTimeout(t *testing.T) {
	esc := NewEscalator(&fakeNotifier{}, nil, DefaultEscalationConfig(), zap.NewNop())

	if got := esc.baseTimeout(triage.StatusMinor); got != 15*time.Minute {
		t.Errorf("Expected major timeout fallback, got %v", got)
	}
}
