package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	"github.com/vladislavdragonenkov/cartstore/internal/metrics"
)

const (
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
	defaultSaveTimeout    = 5 * time.Second
	defaultRetryInterval  = 5 * time.Second
)

// PersisterOptions задаёт параметры фоновой записи снимков.
type PersisterOptions struct {
	Logger         *log.Entry
	Metrics        *metrics.CartMetrics
	MaxAttempts    int
	RetryBaseDelay time.Duration
	SaveTimeout    time.Duration
	RetryInterval  time.Duration
}

// PersisterOption настраивает Persister.
type PersisterOption func(*PersisterOptions)

// WithPersisterLogger задаёт logger.
func WithPersisterLogger(logger *log.Entry) PersisterOption {
	return func(opts *PersisterOptions) {
		opts.Logger = logger
	}
}

// WithPersisterMetrics задаёт метрики сохранения.
func WithPersisterMetrics(m *metrics.CartMetrics) PersisterOption {
	return func(opts *PersisterOptions) {
		opts.Metrics = m
	}
}

// WithMaxAttempts задаёт число попыток записи одного снимка.
func WithMaxAttempts(maxAttempts int) PersisterOption {
	return func(opts *PersisterOptions) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) PersisterOption {
	return func(opts *PersisterOptions) {
		opts.RetryBaseDelay = delay
	}
}

// WithSaveTimeout задаёт таймаут одной попытки записи.
func WithSaveTimeout(timeout time.Duration) PersisterOption {
	return func(opts *PersisterOptions) {
		opts.SaveTimeout = timeout
	}
}

// WithRetryInterval задаёт, как часто Run повторяет запись снимков,
// не сохранённых за все попытки.
func WithRetryInterval(interval time.Duration) PersisterOption {
	return func(opts *PersisterOptions) {
		opts.RetryInterval = interval
	}
}

// Persister асинхронно пишет снимки корзин в репозиторий.
//
// Для каждой сессии хранится только последний несохранённый снимок,
// поэтому запись никогда не откатывает корзину к более старому состоянию.
// Снимок, который не удалось записать, не выбрасывается: он ждёт следующей
// попытки в failed, и сессия до успешной записи считается занятой.
type Persister struct {
	repo           domain.SnapshotRepository
	logger         *log.Entry
	metrics        *metrics.CartMetrics
	maxAttempts    int
	retryBaseDelay time.Duration
	saveTimeout    time.Duration
	retryInterval  time.Duration

	mu      sync.Mutex
	pending map[string]domain.CartSnapshot
	order   []string
	failed  map[string]domain.CartSnapshot
	saving  string
	wake    chan struct{}

	// writeMu не даёт Run и Flush писать одну сессию параллельно.
	writeMu sync.Mutex
}

// NewPersister создаёт Persister поверх репозитория снимков.
func NewPersister(repo domain.SnapshotRepository, options ...PersisterOption) *Persister {
	opts := PersisterOptions{
		MaxAttempts:    defaultMaxAttempts,
		RetryBaseDelay: defaultRetryBaseDelay,
		SaveTimeout:    defaultSaveTimeout,
		RetryInterval:  defaultRetryInterval,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-persister")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = defaultSaveTimeout
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}

	return &Persister{
		repo:           repo,
		logger:         logger,
		metrics:        opts.Metrics,
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		saveTimeout:    opts.SaveTimeout,
		retryInterval:  opts.RetryInterval,
		pending:        make(map[string]domain.CartSnapshot),
		failed:         make(map[string]domain.CartSnapshot),
		wake:           make(chan struct{}, 1),
	}
}

// Enqueue ставит снимок в очередь на запись и сразу возвращает управление.
func (p *Persister) Enqueue(sessionID string, snapshot domain.CartSnapshot) {
	p.mu.Lock()
	if _, queued := p.pending[sessionID]; !queued {
		p.order = append(p.order, sessionID)
	}
	p.pending[sessionID] = snapshot.Clone()
	delete(p.failed, sessionID)
	pending := len(p.pending) + len(p.failed)
	p.mu.Unlock()

	p.metrics.SetPersistPending(pending)

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Pending возвращает количество сессий с несохранёнными снимками,
// включая те, запись которых пока не удалась.
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) + len(p.failed)
}

// Busy сообщает, что последний снимок сессии ещё не записан:
// он в очереди, пишется прямо сейчас или ждёт повтора после ошибки.
func (p *Persister) Busy(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, queued := p.pending[sessionID]
	_, failed := p.failed[sessionID]
	return queued || failed || p.saving == sessionID
}

// Run пишет снимки по мере поступления до отмены ctx.
func (p *Persister) Run(ctx context.Context) {
	if p.repo == nil {
		p.logger.Warn("cart persister is disabled: repository is nil")
		return
	}

	ticker := time.NewTicker(p.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
			_ = p.drain(ctx)
		case <-ticker.C:
			if p.requeueFailed() > 0 {
				_ = p.drain(ctx)
			}
		}
	}
}

// Flush синхронно записывает всё, что стоит в очереди, и ещё раз пробует
// снимки, которые раньше записать не удалось.
// Возвращает объединённые ошибки сессий, которые не удалось сохранить.
func (p *Persister) Flush(ctx context.Context) error {
	if p.repo == nil {
		return nil
	}
	p.requeueFailed()
	return p.drain(ctx)
}

// requeueFailed возвращает неудавшиеся снимки в очередь.
func (p *Persister) requeueFailed() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for sessionID, snapshot := range p.failed {
		if _, queued := p.pending[sessionID]; !queued {
			p.pending[sessionID] = snapshot
			p.order = append(p.order, sessionID)
			n++
		}
		delete(p.failed, sessionID)
	}
	return n
}

func (p *Persister) drain(ctx context.Context) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	var errs []error
	for {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		sessionID, snapshot, ok := p.next()
		if !ok {
			break
		}

		err := p.saveWithRetry(ctx, sessionID, snapshot)
		p.mu.Lock()
		p.saving = ""
		if _, queued := p.pending[sessionID]; err != nil && !queued {
			if ctx.Err() != nil {
				// запись прервана остановкой: снимок вернётся в очередь для Flush
				p.pending[sessionID] = snapshot
				p.order = append([]string{sessionID}, p.order...)
			} else {
				p.failed[sessionID] = snapshot
			}
		}
		p.mu.Unlock()
		if err != nil {
			p.logger.WithError(err).WithField("session_id", sessionID).Error("cart snapshot persist failed after retries")
			errs = append(errs, fmt.Errorf("session %s: %w", sessionID, err))
		}
	}

	p.metrics.SetPersistPending(p.Pending())
	return errors.Join(errs...)
}

func (p *Persister) next() (string, domain.CartSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.order) > 0 {
		sessionID := p.order[0]
		p.order = p.order[1:]
		snapshot, ok := p.pending[sessionID]
		if !ok {
			continue
		}
		delete(p.pending, sessionID)
		p.saving = sessionID
		return sessionID, snapshot, true
	}
	return "", domain.CartSnapshot{}, false
}

func (p *Persister) saveWithRetry(ctx context.Context, sessionID string, snapshot domain.CartSnapshot) error {
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		start := time.Now()
		saveCtx, cancel := context.WithTimeout(ctx, p.saveTimeout)
		err := p.repo.Save(saveCtx, sessionID, snapshot)
		cancel()
		if err == nil {
			p.metrics.RecordPersist("saved", time.Since(start))
			return nil
		}
		lastErr = err
		p.metrics.RecordPersist("retry_error", time.Since(start))

		if attempt >= p.maxAttempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := p.retryBackoff(attempt)
		if delay <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	p.metrics.RecordPersist("failed", 0)
	return fmt.Errorf("save failed after %d attempts: %w", p.maxAttempts, lastErr)
}

func (p *Persister) retryBackoff(attempt int) time.Duration {
	if p.retryBaseDelay <= 0 {
		return 0
	}
	if attempt <= 1 {
		return p.retryBaseDelay
	}

	const maxDuration = time.Duration(1<<63 - 1)
	delay := p.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > maxDuration/2 {
			return maxDuration
		}
		delay *= 2
	}
	return delay
}
