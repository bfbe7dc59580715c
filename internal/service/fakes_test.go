package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/creatorhub/settlement-engine/internal/interfaces"
	"github.com/creatorhub/settlement-engine/internal/models"
)

var errNotFound = errors.New("not found")

// In-memory repository fakes. They mirror the conditional-update semantics of
// the SQL implementations so the services' compare-and-swap logic is exercised
// for real.

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.RevenueEvent

	failClaimFor map[uuid.UUID]error // keyed by author
	claimHook    func()              // runs once, before the claim applies
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		events:       make(map[uuid.UUID]*models.RevenueEvent),
		failClaimFor: make(map[uuid.UUID]error),
	}
}

func (r *fakeEventRepo) Insert(_ context.Context, event *models.RevenueEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id uuid.UUID) (*models.RevenueEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *ev
	return &cp, nil
}

func (r *fakeEventRepo) ListByAuthorSince(_ context.Context, authorID uuid.UUID, since time.Time) ([]models.RevenueEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RevenueEvent
	for _, ev := range r.events {
		if ev.AuthorID == authorID && !ev.OccurredAt.Before(since) {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) ListClaimable(_ context.Context, authorID uuid.UUID, from, to time.Time, settlementID uuid.UUID) ([]models.RevenueEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RevenueEvent
	for _, ev := range r.events {
		if ev.AuthorID != authorID || ev.ReviewStatus != models.ReviewAccepted {
			continue
		}
		if ev.OccurredAt.Before(from) || !ev.OccurredAt.Before(to) {
			continue
		}
		if ev.SettlementID == nil || *ev.SettlementID == settlementID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) ClaimForSettlement(_ context.Context, eventIDs []uuid.UUID, settlementID uuid.UUID) (int64, error) {
	if hook := r.takeClaimHook(); hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var claimed int64
	for _, id := range eventIDs {
		ev, ok := r.events[id]
		if !ok {
			continue
		}
		if err := r.failClaimFor[ev.AuthorID]; err != nil {
			return 0, err
		}
		if ev.SettlementID != nil {
			continue
		}
		sid := settlementID
		ev.SettlementID = &sid
		claimed++
	}
	return claimed, nil
}

func (r *fakeEventRepo) takeClaimHook() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	hook := r.claimHook
	r.claimHook = nil
	return hook
}

func (r *fakeEventRepo) DistinctUnclaimedAuthors(_ context.Context, from, to time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, ev := range r.events {
		if ev.ReviewStatus != models.ReviewAccepted || ev.SettlementID != nil {
			continue
		}
		if ev.OccurredAt.Before(from) || !ev.OccurredAt.Before(to) {
			continue
		}
		if !seen[ev.AuthorID] {
			seen[ev.AuthorID] = true
			out = append(out, ev.AuthorID)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) UpdateReviewStatus(_ context.Context, id uuid.UUID, from, to models.ReviewStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[id]
	if !ok || ev.ReviewStatus != from || ev.SettlementID != nil {
		return 0, nil
	}
	ev.ReviewStatus = to
	return 1, nil
}

func (r *fakeEventRepo) LifetimeCreatorTotal(_ context.Context, authorID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, ev := range r.events {
		if ev.AuthorID == authorID && ev.ReviewStatus == models.ReviewAccepted {
			total += ev.CreatorAmount
		}
	}
	return total, nil
}

type fakeSettlementRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Settlement
}

func newFakeSettlementRepo() *fakeSettlementRepo {
	return &fakeSettlementRepo{rows: make(map[uuid.UUID]*models.Settlement)}
}

func (r *fakeSettlementRepo) byPeriod(authorID uuid.UUID, year int, month time.Month) *models.Settlement {
	for _, s := range r.rows {
		if s.AuthorID == authorID && s.Year == year && s.Month == month {
			return s
		}
	}
	return nil
}

func (r *fakeSettlementRepo) GetByPeriod(_ context.Context, authorID uuid.UUID, year int, month time.Month) (*models.Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.byPeriod(authorID, year, month); s != nil {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeSettlementRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSettlementRepo) Upsert(_ context.Context, s *models.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.byPeriod(s.AuthorID, s.Year, s.Month); existing != nil {
		if existing.Status.Closed() {
			return nil
		}
		// The unique constraint keeps the first row's identity.
		id, createdAt := existing.ID, existing.CreatedAt
		cp := *s
		cp.ID, cp.CreatedAt = id, createdAt
		r.rows[id] = &cp
		return nil
	}
	cp := *s
	r.rows[s.ID] = &cp
	return nil
}

func (r *fakeSettlementRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to models.SettlementStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok || s.Status != from {
		return 0, nil
	}
	s.Status = to
	now := time.Now().UTC()
	switch to {
	case models.SettlementCompleted:
		s.ProcessedAt = &now
	case models.SettlementPaid:
		s.PaidAt = &now
	}
	s.UpdatedAt = now
	return 1, nil
}

func (r *fakeSettlementRepo) ListByAuthor(_ context.Context, authorID uuid.UUID, limit int) ([]models.Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Settlement
	for _, s := range r.rows {
		if s.AuthorID == authorID && len(out) < limit {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSettlementRepo) SumCreatorTotals(_ context.Context, authorID uuid.UUID, statuses []models.SettlementStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, s := range r.rows {
		if s.AuthorID != authorID {
			continue
		}
		for _, status := range statuses {
			if s.Status == status {
				total += s.CreatorTotal
				break
			}
		}
	}
	return total, nil
}

type fakeWithdrawalRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.WithdrawalRequest
}

func newFakeWithdrawalRepo() *fakeWithdrawalRepo {
	return &fakeWithdrawalRepo{rows: make(map[uuid.UUID]*models.WithdrawalRequest)}
}

func (r *fakeWithdrawalRepo) Insert(_ context.Context, w *models.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.rows[w.ID] = &cp
	return nil
}

func (r *fakeWithdrawalRepo) GetByID(_ context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.rows[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWithdrawalRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to models.WithdrawalStatus, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.rows[id]
	if !ok || w.Status != from {
		return 0, nil
	}
	w.Status = to
	switch to {
	case models.WithdrawalProcessing:
		w.ProcessedAt = &at
	case models.WithdrawalCompleted:
		w.CompletedAt = &at
	}
	w.UpdatedAt = at
	return 1, nil
}

func (r *fakeWithdrawalRepo) MarkRejected(_ context.Context, id uuid.UUID, from models.WithdrawalStatus, reason string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.rows[id]
	if !ok || w.Status != from {
		return 0, nil
	}
	w.Status = models.WithdrawalRejected
	w.RejectedAt = &at
	w.RejectionReason = &reason
	w.UpdatedAt = at
	return 1, nil
}

func (r *fakeWithdrawalRepo) SumHeldAmounts(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, w := range r.rows {
		if w.UserID == userID && !w.Status.ReleasesBalance() {
			total += w.ActualAmount
		}
	}
	return total, nil
}

func (r *fakeWithdrawalRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WithdrawalRequest
	for _, w := range r.rows {
		if w.UserID == userID && len(out) < limit {
			out = append(out, *w)
		}
	}
	return out, nil
}

type fakeWatermarkRepo struct {
	mu   sync.Mutex
	rows map[string]*models.SweepWatermark
}

func newFakeWatermarkRepo() *fakeWatermarkRepo {
	return &fakeWatermarkRepo{rows: make(map[string]*models.SweepWatermark)}
}

func (r *fakeWatermarkRepo) Get(_ context.Context, period string) (*models.SweepWatermark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.rows[period]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWatermarkRepo) Record(_ context.Context, w *models.SweepWatermark) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.rows[w.Period] = &cp
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (n *fakeNotifier) Publish(_ context.Context, notification models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification)
	return nil
}

func (n *fakeNotifier) sentOfType(typ string) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.Notification
	for _, notification := range n.sent {
		if notification.Type == typ {
			out = append(out, notification)
		}
	}
	return out
}

type fakeLock struct{}

func (fakeLock) Release(context.Context) error { return nil }

type fakeLocker struct {
	mu       sync.Mutex
	err      error
	obtained []string
}

func (l *fakeLocker) Obtain(_ context.Context, key string, _ time.Duration) (interfaces.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.obtained = append(l.obtained, key)
	return fakeLock{}, nil
}
