package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrowbid-backend/internal/goroutine"
)

// Job - периодическая задача.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Options - общие параметры пакетной обработки.
type Options struct {
	Concurrency int
	ItemTimeout time.Duration
	BatchSize   int
}

func (o Options) normalized() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = 30 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	return o
}

// Runner запускает задачу по таймеру. Запуски не пересекаются: следующий тик
// обрабатывается только после завершения предыдущего.
type Runner struct {
	job      Job
	interval time.Duration
	log      logrus.FieldLogger
	recovery *goroutine.RecoveryHandler

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner создаёт планировщик задачи.
func NewRunner(job Job, interval time.Duration, log logrus.FieldLogger) *Runner {
	log = log.WithField("job", job.Name())
	return &Runner{
		job:      job,
		interval: interval,
		log:      log,
		recovery: goroutine.NewRecoveryHandler(log),
	}
}

// Start запускает цикл в фоне. Первый запуск выполняется сразу.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go r.loop(ctx, r.done)
	r.log.WithField("interval", r.interval.String()).Info("планировщик запущен")
}

// Stop останавливает цикл и ждёт завершения текущего запуска.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.log.Info("планировщик остановлен")
}

// RunOnce выполняет задачу один раз, перехватывая panic.
func (r *Runner) RunOnce(ctx context.Context) {
	started := time.Now()
	r.recovery.Run(func() {
		if err := r.job.Run(ctx); err != nil {
			r.log.WithError(err).Error("запуск задачи завершился с ошибкой")
			return
		}
		r.log.WithField("duration", time.Since(started).String()).Debug("запуск задачи завершён")
	})
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}
