package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/service"
)

type stubSettler struct {
	mu      sync.Mutex
	matured []models.MaturedBid
	fail    map[uuid.UUID]error
	done    map[uuid.UUID]bool
	calls   int
	pages   int
}

// ListMatured отдаёт ставки строго после курсора, как keyset-выборка хранилища.
func (s *stubSettler) ListMatured(_ context.Context, after *models.MaturedCursor, limit int) ([]models.MaturedBid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pages++
	start := 0
	if after != nil {
		for i, b := range s.matured {
			if b.ID == after.ID {
				start = i + 1
			}
		}
	}

	page := s.matured[start:]
	if len(page) > limit {
		page = page[:limit]
	}
	return page, nil
}

func (s *stubSettler) SettleMatured(ctx context.Context, bid models.MaturedBid) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if _, ok := ctx.Deadline(); !ok {
		return false, errors.New("no per-item deadline")
	}
	if err := s.fail[bid.ID]; err != nil {
		return false, err
	}
	if s.done[bid.ID] {
		return false, nil
	}
	s.done[bid.ID] = true
	return true, nil
}

func maturedBids(n int) []models.MaturedBid {
	out := make([]models.MaturedBid, n)
	for i := range out {
		out[i] = models.MaturedBid{Bid: models.Bid{ID: uuid.New(), QuotationID: uuid.New()}}
	}
	return out
}

func TestEscrowReleaseJob_FailureDoesNotStopOtherBids(t *testing.T) {
	log, hook := test.NewNullLogger()
	bids := maturedBids(5)
	settler := &stubSettler{
		matured: bids,
		fail:    map[uuid.UUID]error{bids[2].ID: errors.New("deadlock detected")},
		done:    map[uuid.UUID]bool{bids[4].ID: true},
	}

	job := NewEscrowReleaseJob(settler, Options{Concurrency: 2, ItemTimeout: time.Second, BatchSize: 10}, log)
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 5, settler.calls)
	assert.Len(t, settler.done, 4)

	var failedEntry *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			entry := e
			failedEntry = entry
		}
	}
	require.NotNil(t, failedEntry)
	assert.Equal(t, bids[2].ID, failedEntry.Data["bid_id"])

	summary := hook.LastEntry()
	assert.EqualValues(t, 3, summary.Data["completed"])
	assert.EqualValues(t, 1, summary.Data["skipped"])
	assert.EqualValues(t, 1, summary.Data["failed"])
}

func TestEscrowReleaseJob_PagesThroughAllMatured(t *testing.T) {
	log, _ := test.NewNullLogger()
	settler := &stubSettler{matured: maturedBids(7), done: map[uuid.UUID]bool{}}

	job := NewEscrowReleaseJob(settler, Options{Concurrency: 3, BatchSize: 4}, log)
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 7, settler.calls)
	assert.Len(t, settler.done, 7)
	assert.Equal(t, 2, settler.pages)
}

func TestEscrowReleaseJob_FailingBidsDoNotStarveLaterOnes(t *testing.T) {
	log, hook := test.NewNullLogger()
	bids := maturedBids(7)
	fail := map[uuid.UUID]error{}
	for _, b := range bids[:4] {
		fail[b.ID] = errors.New("could not serialize access")
	}
	settler := &stubSettler{matured: bids, fail: fail, done: map[uuid.UUID]bool{}}

	job := NewEscrowReleaseJob(settler, Options{Concurrency: 2, BatchSize: 4}, log)
	require.NoError(t, job.Run(context.Background()))

	for _, b := range bids[4:] {
		assert.True(t, settler.done[b.ID], b.ID.String())
	}
	summary := hook.LastEntry()
	assert.EqualValues(t, 7, summary.Data["matured"])
	assert.EqualValues(t, 4, summary.Data["failed"])
	assert.EqualValues(t, 3, summary.Data["completed"])
}

func TestEscrowReleaseJob_ListErrorIsReturned(t *testing.T) {
	log, _ := test.NewNullLogger()
	job := NewEscrowReleaseJob(failingSettler{}, Options{}, log)

	assert.Error(t, job.Run(context.Background()))
}

type failingSettler struct{}

func (failingSettler) ListMatured(context.Context, *models.MaturedCursor, int) ([]models.MaturedBid, error) {
	return nil, errors.New("connection refused")
}

func (failingSettler) SettleMatured(context.Context, models.MaturedBid) (bool, error) {
	return false, nil
}

type stubSettings struct {
	settings models.PlatformSettings
}

func (s stubSettings) Get(context.Context) (*models.PlatformSettings, error) {
	c := s.settings
	return &c, nil
}

type stubCandidates struct {
	ids           []uuid.UUID
	createdBefore time.Time
}

func (s *stubCandidates) ListAuctionCandidates(_ context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	s.createdBefore = createdBefore
	return s.ids, nil
}

type stubAwarder struct {
	mu          sync.Mutex
	results     map[uuid.UUID]error
	commissions []decimal.Decimal
	calls       atomic.Int32
}

func (a *stubAwarder) AwardLowest(_ context.Context, quotationID uuid.UUID, pct decimal.Decimal) (*service.SettlementResult, error) {
	a.calls.Add(1)
	a.mu.Lock()
	a.commissions = append(a.commissions, pct)
	err := a.results[quotationID]
	a.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &service.SettlementResult{QuotationID: quotationID, WinningBidID: uuid.New(), SettlementPrice: decimal.NewFromInt(575)}, nil
}

func TestAuctionCloseJob_SkipsWhenDisabled(t *testing.T) {
	log, _ := test.NewNullLogger()
	candidates := &stubCandidates{ids: []uuid.UUID{uuid.New()}}
	awarder := &stubAwarder{}

	job := NewAuctionCloseJob(stubSettings{models.PlatformSettings{AuctionEnabled: false}}, candidates, awarder,
		6*time.Hour, decimal.NewFromInt(10), Options{}, log)
	require.NoError(t, job.Run(context.Background()))

	assert.Zero(t, awarder.calls.Load())
}

func TestAuctionCloseJob_AwardsExpiredQuotations(t *testing.T) {
	log, hook := test.NewNullLogger()
	raced := uuid.New()
	broken := uuid.New()
	ok := uuid.New()
	candidates := &stubCandidates{ids: []uuid.UUID{raced, broken, ok}}
	awarder := &stubAwarder{results: map[uuid.UUID]error{
		raced:  service.ErrAlreadyAwarded.WithCause(errors.New("race")),
		broken: service.ErrAwardFailed,
	}}

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	job := NewAuctionCloseJob(stubSettings{models.PlatformSettings{AuctionEnabled: true, CommissionPercent: decimal.NewFromInt(15)}},
		candidates, awarder, 6*time.Hour, decimal.NewFromInt(10), Options{Concurrency: 2}, log)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, now.Add(-6*time.Hour), candidates.createdBefore)
	assert.EqualValues(t, 3, awarder.calls.Load())
	for _, pct := range awarder.commissions {
		assert.True(t, pct.Equal(decimal.NewFromInt(15)))
	}

	summary := hook.LastEntry()
	assert.EqualValues(t, 1, summary.Data["awarded"])
	assert.EqualValues(t, 1, summary.Data["failed"])

	errorsLogged := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errorsLogged++
			assert.Equal(t, broken, e.Data["quotation_id"])
		}
	}
	assert.Equal(t, 1, errorsLogged)
}

func TestAuctionCloseJob_FallsBackToDefaultCommission(t *testing.T) {
	log, _ := test.NewNullLogger()
	candidates := &stubCandidates{ids: []uuid.UUID{uuid.New()}}
	awarder := &stubAwarder{}

	job := NewAuctionCloseJob(stubSettings{models.PlatformSettings{AuctionEnabled: true}}, candidates, awarder,
		time.Hour, decimal.NewFromInt(10), Options{}, log)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, awarder.commissions, 1)
	assert.True(t, awarder.commissions[0].Equal(decimal.NewFromInt(10)))
}

type countingJob struct {
	runs  atomic.Int32
	panic bool
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
	return nil
}

func TestRunner_StartRunsImmediatelyAndStopWaits(t *testing.T) {
	log, _ := test.NewNullLogger()
	job := &countingJob{}
	r := NewRunner(job, time.Hour, log)

	r.Start(context.Background())
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	r.Stop()
	r.Stop()
	assert.EqualValues(t, 1, job.runs.Load())
}

func TestRunner_RecoversPanics(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := NewRunner(&countingJob{panic: true}, time.Hour, log)

	assert.NotPanics(t, func() { r.RunOnce(context.Background()) })
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
