package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/shared/config"
	"github.com/vitalwatch/platform/internal/shared/metrics"
)

// Service fans notifications out to channel providers through a worker
// pool. Failed deliveries are retried with a fixed delay up to the
// configured attempt count.
type Service struct {
	providers map[Channel]Provider
	logger    *zap.Logger

	mu      sync.RWMutex
	pending map[string]*Notification
	stats   Stats

	notifCh chan *Notification
	workers int

	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	retryAttempts int
	retryDelay    time.Duration
}

// NewService creates a notification service. Channels without a provider
// reject sends.
func NewService(providers map[Channel]Provider, cfg config.NotificationConfig, logger *zap.Logger) *Service {
	return &Service{
		providers: providers,
		logger:    logger,
		pending:   make(map[string]*Notification),
		stats: Stats{
			ByChannel:  make(map[Channel]int64),
			ByPriority: make(map[Priority]int64),
		},
		notifCh:       make(chan *Notification, cfg.BufferSize),
		workers:       cfg.Workers,
		stopCh:        make(chan struct{}),
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
	}
}

// Start launches the worker pool. It returns immediately; workers run until
// the context is cancelled or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("notification service already started")
	}
	s.started = true
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	return nil
}

// Stop drains the worker pool.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("notification service not started")
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	return nil
}

// Send enqueues a notification for delivery. It fails fast when the buffer
// is full rather than blocking an alert path on a slow gateway.
func (s *Service) Send(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	n.Status = StatusPending

	s.mu.Lock()
	s.pending[n.ID] = n
	s.mu.Unlock()

	select {
	case s.notifCh <- n:
		return nil
	default:
		return fmt.Errorf("notification buffer full")
	}
}

// GetStats returns a copy of the delivery statistics.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.stats
	out.ByChannel = make(map[Channel]int64, len(s.stats.ByChannel))
	for k, v := range s.stats.ByChannel {
		out.ByChannel[k] = v
	}
	out.ByPriority = make(map[Priority]int64, len(s.stats.ByPriority))
	for k, v := range s.stats.ByPriority {
		out.ByPriority[k] = v
	}
	return out
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case n := <-s.notifCh:
			s.process(ctx, n)
		}
	}
}

func (s *Service) process(ctx context.Context, n *Notification) {
	provider, ok := s.providers[n.Channel]

	var err error
	if !ok {
		err = fmt.Errorf("no provider configured for channel %s", n.Channel)
	} else {
		err = provider.Send(ctx, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		n.ErrorMessage = err.Error()
		n.RetryCount++

		if n.RetryCount >= s.retryAttempts {
			n.Status = StatusFailed
			delete(s.pending, n.ID)
			s.record(n, false)
			metrics.RecordNotification(string(n.Channel), "failed")
			s.logger.Error("Notification delivery failed",
				zap.String("id", n.ID),
				zap.String("channel", string(n.Channel)),
				zap.String("recipient", n.Recipient),
				zap.Int("attempts", n.RetryCount),
				zap.Error(err),
			)
		} else {
			go s.requeue(n)
		}
	} else {
		now := time.Now()
		n.SentAt = &now
		n.Status = StatusSent
		delete(s.pending, n.ID)
		s.record(n, true)
		metrics.RecordNotification(string(n.Channel), "sent")
	}

	n.UpdatedAt = time.Now()
}

func (s *Service) requeue(n *Notification) {
	select {
	case <-s.stopCh:
		return
	case <-time.After(s.retryDelay):
	}
	select {
	case s.notifCh <- n:
	default:
		// Buffer stayed full through the retry window; drop rather than
		// block the retry goroutine forever.
		s.logger.Warn("Dropping notification retry, buffer full",
			zap.String("id", n.ID),
		)
	}
}

func (s *Service) record(n *Notification, delivered bool) {
	s.stats.TotalSent++
	s.stats.ByChannel[n.Channel]++
	s.stats.ByPriority[n.Priority]++
	if delivered {
		s.stats.TotalDelivered++
	} else {
		s.stats.TotalFailed++
	}
	if s.stats.TotalSent > 0 {
		s.stats.DeliveryRate = float64(s.stats.TotalDelivered) / float64(s.stats.TotalSent)
	}
}
