package cache

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultNotifyTimeout bounds one sibling notification.
const DefaultNotifyTimeout = 5 * time.Second

// Notifier mirrors invalidations to sibling instances. Each notification is
// sent in the background, bounded by a timeout and guarded by a per-sibling
// circuit breaker. Failures are logged and dropped.
type Notifier struct {
	siblings []string
	client   *http.Client
	timeout  time.Duration
	breakers map[string]*gobreaker.CircuitBreaker
	logger   *zap.Logger
	metrics  *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNotifier creates a notifier for the given sibling base URLs. Empty
// entries are ignored.
func NewNotifier(siblings []string, timeout time.Duration, logger *zap.Logger, metrics *Metrics) *Notifier {
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		logger:   logger,
		metrics:  metrics,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, s := range siblings {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		n.siblings = append(n.siblings, s)
		n.breakers[s] = n.newBreaker(s)
	}
	return n
}

func (n *Notifier) newBreaker(sibling string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        sibling,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			n.logger.Warn("sibling circuit breaker state changed",
				zap.String("sibling", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// Siblings returns the configured sibling URLs.
func (n *Notifier) Siblings() []string {
	return append([]string(nil), n.siblings...)
}

// NotifyUpdate asks every sibling to invalidate the given genes.
func (n *Notifier) NotifyUpdate(entrezGeneIDs []int) {
	if len(entrezGeneIDs) == 0 {
		return
	}
	ids := make([]string, len(entrezGeneIDs))
	for i, id := range entrezGeneIDs {
		ids[i] = strconv.Itoa(id)
	}
	n.broadcast(CommandUpdateGene, "cmd="+CommandUpdateGene.String()+"&entrezGeneIds="+strings.Join(ids, ","))
}

// NotifyReset asks every sibling to reset its cache.
func (n *Notifier) NotifyReset() {
	n.broadcast(CommandReset, "cmd="+CommandReset.String())
}

func (n *Notifier) broadcast(cmd Command, query string) {
	for _, s := range n.siblings {
		target := s + "?" + query
		if strings.Contains(s, "?") {
			target = s + "&" + query
		}
		n.wg.Add(1)
		go func(sibling, target string) {
			defer n.wg.Done()
			n.send(cmd, sibling, target)
		}(s, target)
	}
}

func (n *Notifier) send(cmd Command, sibling, target string) {
	ctx, cancel := context.WithTimeout(n.ctx, n.timeout)
	defer cancel()

	_, err := n.breakers[sibling].Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
		if err != nil {
			return nil, err
		}
		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("status %s", resp.Status)
		}
		return nil, nil
	})
	if err != nil {
		n.logger.Warn("sibling notification failed",
			zap.String("sibling", sibling),
			zap.Stringer("command", cmd),
			zap.Error(err))
		n.record(cmd, "failure")
		return
	}
	n.logger.Debug("sibling notified",
		zap.String("sibling", sibling),
		zap.Stringer("command", cmd))
	n.record(cmd, "success")
}

func (n *Notifier) record(cmd Command, result string) {
	if n.metrics != nil {
		n.metrics.Notifications.WithLabelValues(cmd.String(), result).Inc()
	}
}

// Wait blocks until in-flight notifications finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Close cancels in-flight notifications and waits for them to return.
func (n *Notifier) Close() {
	n.cancel()
	n.wg.Wait()
}
