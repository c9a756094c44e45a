package notification

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/shared/config"
)

type recordingProvider struct {
	mu       sync.Mutex
	sent     []*Notification
	failures int
}

func (p *recordingProvider) Send(ctx context.Context, n *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return fmt.Errorf("gateway unavailable")
	}
	p.sent = append(p.sent, n)
	return nil
}

func (p *recordingProvider) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func testConfig() config.NotificationConfig {
	return config.NotificationConfig{
		Workers:       2,
		BufferSize:    16,
		RetryAttempts: 3,
		RetryDelay:    10 * time.Millisecond,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before timeout")
}

func TestSendDelivers(t *testing.T) {
	provider := &recordingProvider{}
	svc := NewService(map[Channel]Provider{ChannelPush: provider}, testConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	err := svc.Send(ctx, &Notification{
		Channel:   ChannelPush,
		Priority:  PriorityCritical,
		Recipient: "nurse",
		Title:     "Patient critical",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return provider.sentCount() == 1 })

	stats := svc.GetStats()
	if stats.TotalDelivered != 1 {
		t.Errorf("Expected 1 delivered, got %d", stats.TotalDelivered)
	}
	if stats.ByChannel[ChannelPush] != 1 {
		t.Errorf("Expected 1 push notification recorded, got %d", stats.ByChannel[ChannelPush])
	}
}

func TestSendRetriesTransientFailure(t *testing.T) {
	provider := &recordingProvider{failures: 2}
	svc := NewService(map[Channel]Provider{ChannelSMS: provider}, testConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	err := svc.Send(ctx, &Notification{
		Channel:   ChannelSMS,
		Priority:  PriorityUrgent,
		Recipient: "charge_nurse",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return provider.sentCount() == 1 })
}

func TestSendExhaustsRetries(t *testing.T) {
	provider := &recordingProvider{failures: 10}
	svc := NewService(map[Channel]Provider{ChannelEmail: provider}, testConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	err := svc.Send(ctx, &Notification{
		Channel:   ChannelEmail,
		Priority:  PriorityNormal,
		Recipient: "doctor",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return svc.GetStats().TotalFailed == 1 })

	if provider.sentCount() != 0 {
		t.Errorf("Expected no successful deliveries, got %d", provider.sentCount())
	}
}

func TestSendUnknownChannelFails(t *testing.T) {
	svc := NewService(map[Channel]Provider{}, testConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	err := svc.Send(ctx, &Notification{Channel: ChannelPush, Recipient: "nurse"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return svc.GetStats().TotalFailed == 1 })
}

func TestStartTwiceFails(t *testing.T) {
	svc := NewService(map[Channel]Provider{}, testConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	if err := svc.Start(ctx); err == nil {
		t.Error("Expected second Start to fail")
	}
}
