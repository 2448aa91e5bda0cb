package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/escrowbid-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrowbid-backend/internal/models"
	"github.com/ignatzorin/escrowbid-backend/internal/repository"
)

// fakeClock - управляемые часы для тестов.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeLedger - хранилище в памяти с теми же правилами переходов, что и репозитории.
// Один мьютекс заменяет блокировки строк.
type fakeLedger struct {
	mu          sync.Mutex
	clock       *fakeClock
	seq         time.Duration
	quotations  map[uuid.UUID]*models.Quotation
	bids        map[uuid.UUID]*models.Bid
	commissions map[uuid.UUID]models.CommissionRecord
	disputes    map[uuid.UUID]*models.Dispute
	suppliers   map[uuid.UUID]models.Supplier
	events      []models.BidEvent
}

func newFakeLedger(clock *fakeClock) *fakeLedger {
	return &fakeLedger{
		clock:       clock,
		quotations:  make(map[uuid.UUID]*models.Quotation),
		bids:        make(map[uuid.UUID]*models.Bid),
		commissions: make(map[uuid.UUID]models.CommissionRecord),
		disputes:    make(map[uuid.UUID]*models.Dispute),
		suppliers:   make(map[uuid.UUID]models.Supplier),
	}
}

// tick возвращает строго возрастающую отметку времени для created_at.
func (l *fakeLedger) tick() time.Time {
	l.seq += time.Millisecond
	return l.clock.Now().Add(l.seq)
}

func (l *fakeLedger) addSupplier(email string) uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := uuid.New()
	l.suppliers[id] = models.Supplier{ID: id, CompanyName: "Supplier " + id.String()[:4], Email: email}
	return id
}

func (l *fakeLedger) appendEvent(bid *models.Bid, eventType string, actor *uuid.UUID) {
	l.events = append(l.events, models.BidEvent{
		ID:          uuid.New(),
		BidID:       bid.ID,
		QuotationID: bid.QuotationID,
		EventType:   eventType,
		ActorID:     actor,
		CreatedAt:   l.tick(),
	})
}

func (l *fakeLedger) pendingBids(quotationID uuid.UUID) []*models.Bid {
	pending := []*models.Bid{}
	for _, b := range l.bids {
		if b.QuotationID == quotationID && b.Status == models.BidStatusPending {
			pending = append(pending, b)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if c := pending[i].Price.Cmp(pending[j].Price); c != 0 {
			return c < 0
		}
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID.String() < pending[j].ID.String()
	})
	return pending
}

func (l *fakeLedger) Award(_ context.Context, p repository.AwardParams) (*repository.AwardOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.quotations[p.QuotationID]
	if !ok {
		return nil, repository.ErrQuotationNotFound
	}
	switch q.Status {
	case models.QuotationStatusAwarded:
		return nil, repository.ErrQuotationAwarded
	case models.QuotationStatusClosed:
		return nil, repository.ErrQuotationNotOpen
	}

	var winner *models.Bid
	if p.BidID == uuid.Nil {
		pending := l.pendingBids(q.ID)
		if len(pending) == 0 {
			return nil, repository.ErrNoPendingBids
		}
		winner = pending[0]
	} else {
		b, ok := l.bids[p.BidID]
		if !ok || b.QuotationID != q.ID {
			return nil, repository.ErrBidNotFound
		}
		if b.Status != models.BidStatusPending {
			return nil, repository.ErrBidNotPending
		}
		winner = b
	}

	settlement, err := valueobject.NewSettlementPrice(winner.Price, p.CommissionPercent)
	if err != nil {
		return nil, err
	}
	releaseAt := p.ReleaseAt
	winner.Status = models.BidStatusAccepted
	winner.SettlementPrice = decimal.NullDecimal{Decimal: settlement, Valid: true}
	winner.EscrowReleaseAt = &releaseAt
	winner.UpdatedAt = l.tick()
	l.appendEvent(winner, models.BidEventAccepted, p.ActorID)

	out := &repository.AwardOutcome{Rejected: []models.Bid{}}
	for _, b := range l.pendingBids(q.ID) {
		b.Status = models.BidStatusRejected
		b.UpdatedAt = l.tick()
		l.appendEvent(b, models.BidEventRejected, p.ActorID)
		out.Rejected = append(out.Rejected, *b)
	}

	q.Status = models.QuotationStatusAwarded
	q.UpdatedAt = l.tick()

	record := models.CommissionRecord{
		ID:                uuid.New(),
		BidID:             winner.ID,
		QuotationID:       q.ID,
		CommissionPercent: p.CommissionPercent,
		SettlementPrice:   settlement,
		CreatedAt:         l.tick(),
	}
	l.commissions[winner.ID] = record

	out.Quotation = *q
	out.Winner = *winner
	out.Commission = record
	return out, nil
}

func (l *fakeLedger) Close(_ context.Context, quotationID, actorID uuid.UUID) (*repository.CloseOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.quotations[quotationID]
	if !ok {
		return nil, repository.ErrQuotationNotFound
	}
	switch q.Status {
	case models.QuotationStatusAwarded:
		return nil, repository.ErrQuotationAwarded
	case models.QuotationStatusClosed:
		return nil, repository.ErrQuotationNotOpen
	}

	out := &repository.CloseOutcome{Rejected: []models.Bid{}}
	for _, b := range l.pendingBids(q.ID) {
		b.Status = models.BidStatusRejected
		l.appendEvent(b, models.BidEventRejected, &actorID)
		out.Rejected = append(out.Rejected, *b)
	}
	q.Status = models.QuotationStatusClosed
	out.Quotation = *q
	return out, nil
}

func (l *fakeLedger) CapturePayment(_ context.Context, p repository.CaptureParams) (*models.Bid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.bids[p.BidID]
	if !ok {
		return nil, repository.ErrBidNotFound
	}
	switch {
	case b.Status != models.BidStatusAccepted:
		return nil, repository.ErrBidNotAccepted
	case l.quotations[b.QuotationID].RequesterID != p.RequesterID:
		return nil, repository.ErrNotRequester
	case b.PaymentStatus != models.PaymentStatusPending:
		return nil, repository.ErrPaymentNotPending
	}

	ref := p.Reference
	releaseAt := p.ReleaseAt
	b.PaymentStatus = models.PaymentStatusInEscrow
	b.PaymentReference = &ref
	b.EscrowReleaseAt = &releaseAt
	l.appendEvent(b, models.BidEventPaymentCaptured, &p.RequesterID)
	return copyBid(b), nil
}

func (l *fakeLedger) ListMatured(_ context.Context, now time.Time, after *models.MaturedCursor, limit int) ([]models.MaturedBid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	matured := []models.MaturedBid{}
	for _, b := range l.bids {
		if b.PaymentStatus != models.PaymentStatusInEscrow || b.EscrowReleaseAt == nil || b.EscrowReleaseAt.After(now) {
			continue
		}
		if after != nil && !cursorLess(*after, models.MaturedCursor{ReleaseAt: *b.EscrowReleaseAt, ID: b.ID}) {
			continue
		}
		q := l.quotations[b.QuotationID]
		matured = append(matured, models.MaturedBid{
			Bid:            *b,
			SupplierEmail:  l.suppliers[b.SupplierID].Email,
			RequesterID:    q.RequesterID,
			RequesterEmail: q.RequesterEmail,
		})
	}
	sort.Slice(matured, func(i, j int) bool { return cursorLess(matured[i].Cursor(), matured[j].Cursor()) })
	if len(matured) > limit {
		matured = matured[:limit]
	}
	return matured, nil
}

func cursorLess(a, b models.MaturedCursor) bool {
	if !a.ReleaseAt.Equal(b.ReleaseAt) {
		return a.ReleaseAt.Before(b.ReleaseAt)
	}
	return a.ID.String() < b.ID.String()
}

func (l *fakeLedger) CompletePayment(_ context.Context, bidID uuid.UUID, now time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.bids[bidID]
	if !ok || b.PaymentStatus != models.PaymentStatusInEscrow || b.EscrowReleaseAt.After(now) {
		return false, nil
	}
	b.PaymentStatus = models.PaymentStatusCompleted
	l.appendEvent(b, models.BidEventPaymentCompleted, nil)
	return true, nil
}

func (l *fakeLedger) MarkDisbursed(_ context.Context, bidID, operatorID uuid.UUID, now time.Time) (*models.Bid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.bids[bidID]
	if !ok {
		return nil, repository.ErrBidNotFound
	}
	if b.DisbursementStatus == models.DisbursementStatusDisbursed {
		return nil, repository.ErrAlreadyDisbursed
	}
	if b.PaymentStatus != models.PaymentStatusCompleted {
		return nil, repository.ErrPaymentNotCompleted
	}

	at := now
	operator := operatorID
	b.DisbursementStatus = models.DisbursementStatusDisbursed
	b.DisbursedBy = &operator
	b.DisbursedAt = &at
	l.appendEvent(b, models.BidEventDisbursed, &operator)
	return copyBid(b), nil
}

func copyBid(b *models.Bid) *models.Bid {
	c := *b
	return &c
}

type fakeQuotationRepo struct{ l *fakeLedger }

func (r fakeQuotationRepo) Create(_ context.Context, q *models.Quotation) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	q.ID = uuid.New()
	q.Status = models.QuotationStatusOpen
	if len(q.Details) == 0 {
		q.Details = models.RawJSON(`{}`)
	}
	q.CreatedAt = r.l.tick()
	q.UpdatedAt = q.CreatedAt
	stored := *q
	r.l.quotations[q.ID] = &stored
	return nil
}

func (r fakeQuotationRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Quotation, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	q, ok := r.l.quotations[id]
	if !ok {
		return nil, repository.ErrQuotationNotFound
	}
	c := *q
	return &c, nil
}

func (r fakeQuotationRepo) List(_ context.Context, status string, limit, offset int) ([]models.Quotation, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	out := []models.Quotation{}
	for _, q := range r.l.quotations {
		if status == "" || q.Status == status {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []models.Quotation{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeBidRepo struct{ l *fakeLedger }

func (r fakeBidRepo) Create(_ context.Context, bid *models.Bid) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	q, ok := r.l.quotations[bid.QuotationID]
	if !ok {
		return repository.ErrQuotationNotFound
	}
	if !q.IsOpen() {
		return repository.ErrQuotationNotOpen
	}

	bid.ID = uuid.New()
	bid.Status = models.BidStatusPending
	bid.PaymentStatus = models.PaymentStatusPending
	bid.DisbursementStatus = models.DisbursementStatusPending
	bid.CreatedAt = r.l.tick()
	bid.UpdatedAt = bid.CreatedAt
	r.l.bids[bid.ID] = copyBid(bid)
	r.l.appendEvent(bid, models.BidEventSubmitted, &bid.SupplierID)
	return nil
}

func (r fakeBidRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Bid, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	b, ok := r.l.bids[id]
	if !ok {
		return nil, repository.ErrBidNotFound
	}
	return copyBid(b), nil
}

func (r fakeBidRepo) ListByQuotation(_ context.Context, quotationID uuid.UUID) ([]models.Bid, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	out := []models.Bid{}
	for _, b := range r.l.bids {
		if b.QuotationID == quotationID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Price.Cmp(out[j].Price); c != 0 {
			return c < 0
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r fakeBidRepo) GetCommission(_ context.Context, bidID uuid.UUID) (*models.CommissionRecord, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	record, ok := r.l.commissions[bidID]
	if !ok {
		return nil, repository.ErrCommissionAbsent
	}
	return &record, nil
}

func (r fakeBidRepo) ListEvents(_ context.Context, bidID uuid.UUID) ([]models.BidEvent, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	out := []models.BidEvent{}
	for _, e := range r.l.events {
		if e.BidID == bidID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeDisputeRepo struct{ l *fakeLedger }

func (r fakeDisputeRepo) Create(_ context.Context, d *models.Dispute) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	b, ok := r.l.bids[d.BidID]
	if !ok {
		return repository.ErrBidNotFound
	}
	if b.Status != models.BidStatusAccepted {
		return repository.ErrBidNotAccepted
	}
	if r.l.quotations[b.QuotationID].RequesterID != d.FilerID {
		return repository.ErrNotRequester
	}
	for _, existing := range r.l.disputes {
		if existing.BidID == d.BidID {
			return repository.ErrDisputeExists
		}
	}

	d.ID = uuid.New()
	d.AgainstID = b.SupplierID
	d.Status = models.DisputeStatusPending
	d.CreatedAt = r.l.tick()
	d.UpdatedAt = d.CreatedAt
	stored := *d
	r.l.disputes[d.ID] = &stored
	r.l.appendEvent(b, models.BidEventDisputeFiled, &d.FilerID)
	return nil
}

func (r fakeDisputeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Dispute, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	d, ok := r.l.disputes[id]
	if !ok {
		return nil, repository.ErrDisputeNotFound
	}
	c := *d
	return &c, nil
}

func (r fakeDisputeRepo) GetByBidID(_ context.Context, bidID uuid.UUID) (*models.Dispute, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	for _, d := range r.l.disputes {
		if d.BidID == bidID {
			c := *d
			return &c, nil
		}
	}
	return nil, repository.ErrDisputeNotFound
}

func (r fakeDisputeRepo) List(_ context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	out := []models.Dispute{}
	for _, d := range r.l.disputes {
		if status == "" || d.Status == status {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r fakeDisputeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*models.Dispute, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	d, ok := r.l.disputes[id]
	if !ok {
		return nil, repository.ErrDisputeNotFound
	}
	if !valueobject.DisputeStatus(d.Status).CanTransitionTo(valueobject.DisputeStatus(status)) {
		return nil, repository.ErrInvalidDisputeTransition
	}
	d.Status = status
	d.UpdatedAt = r.l.tick()
	r.l.appendEvent(r.l.bids[d.BidID], models.BidEventDisputeStatusChanged, &actorID)
	c := *d
	return &c, nil
}

type fakeSupplierDirectory struct{ l *fakeLedger }

func (r fakeSupplierDirectory) GetByID(_ context.Context, id uuid.UUID) (*models.Supplier, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()

	s, ok := r.l.suppliers[id]
	if !ok {
		return nil, repository.ErrSupplierNotFound
	}
	return &s, nil
}

// recordingNotifier запоминает доставленные уведомления.
type recordingNotifier struct {
	mu       sync.Mutex
	requests []models.NotificationRequest
}

func (n *recordingNotifier) Notify(_ context.Context, req models.NotificationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
	return nil
}

func (n *recordingNotifier) byEvent(event string) []models.NotificationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := []models.NotificationRequest{}
	for _, r := range n.requests {
		if r.EventType == event {
			out = append(out, r)
		}
	}
	return out
}

type sentEmail struct {
	To    string
	Email models.Email
}

// recordingMailer запоминает отправленные письма.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (m *recordingMailer) Send(_ context.Context, to string, email models.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{To: to, Email: email})
	return nil
}

func (m *recordingMailer) to(address string) []models.Email {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Email{}
	for _, s := range m.sent {
		if s.To == address {
			out = append(out, s.Email)
		}
	}
	return out
}

func inline(fn func()) { fn() }

// testEnv собирает сервисы поверх fakeLedger с синхронной доставкой уведомлений.
type testEnv struct {
	clock     *fakeClock
	ledger    *fakeLedger
	notifier  *recordingNotifier
	mailer    *recordingMailer
	quotes    *QuotationService
	bids      *BidService
	awards    *AwardService
	escrow    *EscrowService
	disputes  *DisputeService
	operator  uuid.UUID
	requester uuid.UUID
}

const (
	testHold          = 120 * time.Hour
	testOperatorEmail = "ops@escrowbid.test"
	testRequesterMail = "requester@escrowbid.test"
)

func newTestEnv() *testEnv {
	clock := newFakeClock()
	ledger := newFakeLedger(clock)
	notifier := &recordingNotifier{}
	mailer := &recordingMailer{}

	dispatch := NewDispatcher(notifier, mailer, fakeSupplierDirectory{ledger}, testOperatorEmail).WithRunner(inline)

	awards := NewAwardService(ledger, dispatch, testHold)
	awards.SetClock(clock.Now)
	escrow := NewEscrowService(ledger, fakeDisputeRepo{ledger}, fakeQuotationRepo{ledger}, dispatch, testHold)
	escrow.SetClock(clock.Now)

	return &testEnv{
		clock:     clock,
		ledger:    ledger,
		notifier:  notifier,
		mailer:    mailer,
		quotes:    NewQuotationService(fakeQuotationRepo{ledger}, fakeBidRepo{ledger}),
		bids:      NewBidService(fakeBidRepo{ledger}, dispatch),
		awards:    awards,
		escrow:    escrow,
		disputes:  NewDisputeService(fakeDisputeRepo{ledger}, dispatch),
		operator:  uuid.New(),
		requester: uuid.New(),
	}
}

func (e *testEnv) openQuotation(ctx context.Context) *models.Quotation {
	q, err := e.quotes.Create(ctx, e.requester, CreateQuotationInput{
		Category:       "moving_service",
		RequesterEmail: testRequesterMail,
	})
	if err != nil {
		panic(err)
	}
	return q
}

func (e *testEnv) submit(ctx context.Context, quotationID uuid.UUID, price string) *models.Bid {
	supplierID := e.ledger.addSupplier(uuid.NewString()[:6] + "@supplier.test")
	bid, err := e.bids.SubmitBid(ctx, quotationID, supplierID, decimal.RequireFromString(price), "")
	if err != nil {
		panic(err)
	}
	return bid
}
