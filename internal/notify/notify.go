package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kmmndr/motion_watch/internal/metrics"
	"github.com/kmmndr/motion_watch/internal/motion"
)

const (
	DefaultQueueSize      = 64
	DefaultPublishTimeout = 5 * time.Second
)

// Publisher delivers activation reports to an external system.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, r *motion.Report) error
	Close() error
}

// Notifier turns activation events into reports and hands them to its
// publishers from a single worker goroutine. Events are dropped when the
// queue is full so the detection loop never waits on a broker.
type Notifier struct {
	motion.NopListener

	source     string
	fps        float64
	publishers []Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	timeout    time.Duration

	queue     chan *motion.Report
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewNotifier starts the worker. m may be nil.
func NewNotifier(source string, fps float64, publishers []Publisher, m *metrics.Metrics, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}

	n := &Notifier{
		source:     source,
		fps:        fps,
		publishers: publishers,
		metrics:    m,
		logger:     logger,
		timeout:    DefaultPublishTimeout,
		queue:      make(chan *motion.Report, DefaultQueueSize),
	}

	n.wg.Add(1)
	go n.run()

	return n
}

func (n *Notifier) ActivationStarted(a motion.Activation) {
	n.enqueue(motion.NewReport(a, n.source, n.fps))
}

func (n *Notifier) ActivationEnded(a motion.Activation) {
	n.enqueue(motion.NewReport(a, n.source, n.fps))
}

func (n *Notifier) enqueue(r *motion.Report) {
	if len(n.publishers) == 0 || n.closed.Load() {
		return
	}

	select {
	case n.queue <- r:
	default:
		n.logger.Warn("notification queue full, dropping report", "activation", r.UUID, "event", r.Event)
		for _, p := range n.publishers {
			n.metrics.Notification(p.Name(), "dropped")
		}
	}
}

func (n *Notifier) run() {
	defer n.wg.Done()

	for r := range n.queue {
		for _, p := range n.publishers {
			ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
			err := p.Publish(ctx, r)
			cancel()

			if err != nil {
				n.logger.Warn("unable to publish report",
					"sink", p.Name(),
					"activation", r.UUID,
					"event", r.Event,
					"error", err)
				n.metrics.Notification(p.Name(), "failed")
				continue
			}
			n.logger.Debug("report published", "sink", p.Name(), "activation", r.UUID, "event", r.Event)
			n.metrics.Notification(p.Name(), "published")
		}
	}
}

// Close drains queued reports and closes the publishers. Events received
// afterwards are ignored.
func (n *Notifier) Close() error {
	var err error

	n.closeOnce.Do(func() {
		n.closed.Store(true)
		close(n.queue)
		n.wg.Wait()

		for _, p := range n.publishers {
			if cerr := p.Close(); cerr != nil {
				n.logger.Warn("unable to close publisher", "sink", p.Name(), "error", cerr)
				if err == nil {
					err = cerr
				}
			}
		}
	})

	return err
}
