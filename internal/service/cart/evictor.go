package cart

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultEvictInterval = time.Minute
	defaultIdleTTL       = 30 * time.Minute
)

// EvictorOptions задаёт параметры выгрузки простаивающих сессий.
type EvictorOptions struct {
	Logger   *log.Entry
	Interval time.Duration
	IdleTTL  time.Duration
}

// EvictorOption настраивает Evictor.
type EvictorOption func(*EvictorOptions)

// WithEvictorLogger задаёт logger.
func WithEvictorLogger(logger *log.Entry) EvictorOption {
	return func(opts *EvictorOptions) {
		opts.Logger = logger
	}
}

// WithEvictInterval задаёт интервал между проходами.
func WithEvictInterval(interval time.Duration) EvictorOption {
	return func(opts *EvictorOptions) {
		opts.Interval = interval
	}
}

// WithIdleTTL задаёт время простоя, после которого сессия выгружается.
// Ноль отключает выгрузку.
func WithIdleTTL(ttl time.Duration) EvictorOption {
	return func(opts *EvictorOptions) {
		opts.IdleTTL = ttl
	}
}

// Evictor периодически выгружает из Registry корзины, к которым давно не обращались.
// Снимки остаются в хранилище, поэтому следующее обращение восстановит корзину.
type Evictor struct {
	registry *Registry
	logger   *log.Entry
	interval time.Duration
	idleTTL  time.Duration
}

// NewEvictor создаёт воркер выгрузки сессий.
func NewEvictor(registry *Registry, options ...EvictorOption) *Evictor {
	opts := EvictorOptions{
		Interval: defaultEvictInterval,
		IdleTTL:  defaultIdleTTL,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-evictor")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultEvictInterval
	}
	if opts.IdleTTL < 0 {
		opts.IdleTTL = 0
	}

	return &Evictor{
		registry: registry,
		logger:   logger,
		interval: opts.Interval,
		idleTTL:  opts.IdleTTL,
	}
}

// Run выгружает простаивающие сессии до отмены ctx.
func (e *Evictor) Run(ctx context.Context) {
	if e.registry == nil || e.idleTTL == 0 {
		e.logger.Info("cart session eviction is disabled")
		return
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.EvictIdle(time.Now())
		}
	}
}

// EvictIdle выгружает сессии, простаивающие дольше idleTTL относительно now.
func (e *Evictor) EvictIdle(now time.Time) int {
	if e.registry == nil || e.idleTTL == 0 {
		return 0
	}

	evicted := e.registry.EvictIdle(now.Add(-e.idleTTL))
	if evicted > 0 {
		e.logger.WithFields(log.Fields{
			"evicted":   evicted,
			"remaining": e.registry.Len(),
		}).Info("idle cart sessions evicted")
	}
	return evicted
}
