package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/service"
)

// SettingsReader читает параметры аукциона.
type SettingsReader interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
}

// CandidateLister находит открытые заявки со ставками, созданные до указанного момента.
type CandidateLister interface {
	ListAuctionCandidates(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error)
}

// LowestAwarder присуждает заявку самой дешёвой ставке.
type LowestAwarder interface {
	AwardLowest(ctx context.Context, quotationID uuid.UUID, commissionPercent decimal.Decimal) (*service.SettlementResult, error)
}

// AuctionCloseJob автоматически присуждает заявки, окно которых истекло.
type AuctionCloseJob struct {
	settings          SettingsReader
	candidates        CandidateLister
	awarder           LowestAwarder
	window            time.Duration
	defaultCommission decimal.Decimal
	opts              Options
	log               logrus.FieldLogger
	now               func() time.Time
}

// NewAuctionCloseJob создаёт задачу закрытия аукционов.
func NewAuctionCloseJob(settings SettingsReader, candidates CandidateLister, awarder LowestAwarder,
	window time.Duration, defaultCommission decimal.Decimal, opts Options, log logrus.FieldLogger) *AuctionCloseJob {
	return &AuctionCloseJob{
		settings:          settings,
		candidates:        candidates,
		awarder:           awarder,
		window:            window,
		defaultCommission: defaultCommission,
		opts:              opts.normalized(),
		log:               log,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

func (j *AuctionCloseJob) Name() string { return "auction_close" }

// Run присуждает истёкшие заявки, если включён режим аукциона.
func (j *AuctionCloseJob) Run(ctx context.Context) error {
	settings, err := j.settings.Get(ctx)
	if err != nil {
		return err
	}
	if !settings.AuctionEnabled {
		j.log.Debug("режим аукциона выключен, пропускаем")
		return nil
	}

	commission := settings.CommissionPercent
	if !commission.IsPositive() {
		commission = j.defaultCommission
	}

	ids, err := j.candidates.ListAuctionCandidates(ctx, j.now().Add(-j.window), j.opts.BatchSize)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	var awarded, failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(j.opts.Concurrency)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		quotationID := id
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, j.opts.ItemTimeout)
			defer cancel()

			log := j.log.WithField("quotation_id", quotationID)
			result, err := j.awarder.AwardLowest(itemCtx, quotationID, commission)
			switch {
			case err == nil:
				awarded.Add(1)
				log.WithFields(logrus.Fields{
					"bid_id":           result.WinningBidID,
					"settlement_price": result.SettlementPrice.String(),
				}).Info("заявка присуждена автоматически")
			case errors.Is(err, service.ErrAlreadyAwarded), errors.Is(err, service.ErrNoPendingBids),
				errors.Is(err, service.ErrQuotationNotOpen):
				log.WithError(err).Info("заявка уже обработана")
			default:
				failed.Add(1)
				log.WithError(err).Error("не удалось присудить заявку")
			}
			return nil
		})
	}
	_ = g.Wait()

	j.log.WithFields(logrus.Fields{
		"candidates": len(ids),
		"awarded":    awarded.Load(),
		"failed":     failed.Load(),
	}).Info("проход по аукционам завершён")

	return ctx.Err()
}
