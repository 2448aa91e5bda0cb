package scheduler

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
)

// EscrowSettler завершает удержание по ставкам.
type EscrowSettler interface {
	ListMatured(ctx context.Context, after *models.MaturedCursor, limit int) ([]models.MaturedBid, error)
	SettleMatured(ctx context.Context, bid models.MaturedBid) (bool, error)
}

// EscrowReleaseJob переводит ставки с истёкшим сроком удержания в completed.
// Каждая ставка обрабатывается со своим таймаутом, ошибка одной не мешает остальным.
type EscrowReleaseJob struct {
	settler EscrowSettler
	opts    Options
	log     logrus.FieldLogger
}

// NewEscrowReleaseJob создаёт задачу освобождения средств.
func NewEscrowReleaseJob(settler EscrowSettler, opts Options, log logrus.FieldLogger) *EscrowReleaseJob {
	return &EscrowReleaseJob{settler: settler, opts: opts.normalized(), log: log}
}

func (j *EscrowReleaseJob) Name() string { return "escrow_release" }

// Run проходит по всем созревшим ставкам страницами по BatchSize. Страницы идут по курсору,
// поэтому ставки, которые не удалось завершить, не занимают следующие страницы.
func (j *EscrowReleaseJob) Run(ctx context.Context) error {
	var (
		after                      *models.MaturedCursor
		matured                    int
		completed, skipped, failed atomic.Int32
	)

	for ctx.Err() == nil {
		page, err := j.settler.ListMatured(ctx, after, j.opts.BatchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		matured += len(page)

		var g errgroup.Group
		g.SetLimit(j.opts.Concurrency)
		for _, bid := range page {
			if ctx.Err() != nil {
				break
			}
			bid := bid
			g.Go(func() error {
				itemCtx, cancel := context.WithTimeout(ctx, j.opts.ItemTimeout)
				defer cancel()

				log := j.log.WithFields(logrus.Fields{"bid_id": bid.ID, "quotation_id": bid.QuotationID})
				ok, err := j.settler.SettleMatured(itemCtx, bid)
				switch {
				case err != nil:
					failed.Add(1)
					log.WithError(err).Error("не удалось завершить удержание")
				case ok:
					completed.Add(1)
					log.Info("удержание завершено, требуется выплата")
				default:
					skipped.Add(1)
					log.Debug("ставка уже обработана")
				}
				return nil
			})
		}
		_ = g.Wait()

		if len(page) < j.opts.BatchSize {
			break
		}
		cursor := page[len(page)-1].Cursor()
		after = &cursor
	}

	if matured > 0 {
		j.log.WithFields(logrus.Fields{
			"matured":   matured,
			"completed": completed.Load(),
			"skipped":   skipped.Load(),
			"failed":    failed.Load(),
		}).Info("проход по удержаниям завершён")
	}

	return ctx.Err()
}
