package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/policy"
	"github.com/Additional-Code/procura/internal/repository"
	"github.com/Additional-Code/procura/internal/repository/repotest"
)

var now = time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *bun.DB {
	return repotest.Open(t,
		(*entity.RFP)(nil),
		(*entity.Quote)(nil),
		(*entity.PurchaseOrder)(nil),
		(*entity.ApprovalRecord)(nil),
	)
}

type fixture struct {
	repo   *Repository
	db     *bun.DB
	rfp    entity.RFP
	quotes []entity.Quote
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := newTestDB(t)
	ctx := context.Background()

	rfp := entity.RFP{
		Title: "Laptops", Description: "Twenty laptops", Category: "IT",
		Budget:       decimal.NewFromInt(40000),
		Deadline:     now.AddDate(0, 1, 0),
		Requirements: []string{},
		Attachments:  []string{},
		Status:       entity.RFPPublished,
		CreatedBy:    1,
		CreatedAt:    now,
	}
	_, err := db.NewInsert().Model(&rfp).Exec(ctx)
	require.NoError(t, err)

	quotes := []entity.Quote{
		{RFPID: rfp.ID, VendorID: 5, TotalPrice: decimal.RequireFromString("1250.50"), DeliveryTime: 10, Status: entity.QuoteSubmitted, SubmittedAt: now},
		{RFPID: rfp.ID, VendorID: 6, TotalPrice: decimal.RequireFromString("990.00"), DeliveryTime: 20, Status: entity.QuoteSubmitted, SubmittedAt: now},
	}
	for i := range quotes {
		_, err := db.NewInsert().Model(&quotes[i]).Exec(ctx)
		require.NoError(t, err)
	}

	return fixture{
		repo:   NewRepository(repotest.Connections(db)),
		db:     db,
		rfp:    rfp,
		quotes: quotes,
	}
}

func sequence(numbers ...string) func(time.Time) string {
	i := 0
	return func(time.Time) string {
		n := numbers[i%len(numbers)]
		i++
		return n
	}
}

func (f fixture) award(q entity.Quote, next func(time.Time) string) (*entity.PurchaseOrder, error) {
	return f.repo.Award(context.Background(), AwardInput{
		RFPID: q.RFPID, QuoteID: q.ID, VendorID: q.VendorID, BuyerID: 1,
		Now: now, NextNumber: next,
	})
}

func (f fixture) quoteStatus(t *testing.T, id int64) entity.QuoteStatus {
	t.Helper()
	var q entity.Quote
	require.NoError(t, f.db.NewSelect().Model(&q).Where("id = ?", id).Scan(context.Background()))
	return q.Status
}

func (f fixture) orderCount(t *testing.T) int {
	t.Helper()
	n, err := f.db.NewSelect().Model((*entity.PurchaseOrder)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestAwardCommitsTogether(t *testing.T) {
	f := setup(t)

	order, err := f.award(f.quotes[0], sequence("PO-1"))
	require.NoError(t, err)
	assert.Equal(t, "PO-1", order.Number)
	assert.Equal(t, entity.OrderPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("1250.50")))
	require.Len(t, order.Approvals, 1)
	assert.Equal(t, int64(1), order.Approvals[0].ApproverID)
	assert.Equal(t, entity.DecisionApproved, order.Approvals[0].Decision)

	assert.Equal(t, entity.QuoteAccepted, f.quoteStatus(t, f.quotes[0].ID))

	var rfp entity.RFP
	require.NoError(t, f.db.NewSelect().Model(&rfp).Where("id = ?", f.rfp.ID).Scan(context.Background()))
	assert.Equal(t, entity.RFPAwarded, rfp.Status)

	stored, err := f.repo.Get(context.Background(), order.ID, policy.OrderScope{BuyerID: 1})
	require.NoError(t, err)
	require.Len(t, stored.Approvals, 1)
}

func TestAwardTwiceConflicts(t *testing.T) {
	f := setup(t)

	_, err := f.award(f.quotes[0], sequence("PO-1"))
	require.NoError(t, err)

	_, err = f.award(f.quotes[0], sequence("PO-2"))
	require.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, 1, f.orderCount(t))
}

func TestAwardOnAwardedRFPRollsBack(t *testing.T) {
	f := setup(t)

	_, err := f.award(f.quotes[0], sequence("PO-1"))
	require.NoError(t, err)

	_, err = f.award(f.quotes[1], sequence("PO-2"))
	require.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, entity.QuoteSubmitted, f.quoteStatus(t, f.quotes[1].ID))
	assert.Equal(t, 1, f.orderCount(t))
}

func TestAwardSkipsTakenNumbers(t *testing.T) {
	f := setup(t)
	_, err := f.db.NewInsert().Model(&entity.PurchaseOrder{
		Number: "PO-1", RFPID: 99, QuoteID: 99, VendorID: 9, BuyerID: 9,
		TotalAmount: decimal.NewFromInt(1), Status: entity.OrderPending, CreatedAt: now,
	}).Exec(context.Background())
	require.NoError(t, err)

	order, err := f.award(f.quotes[0], sequence("PO-1", "PO-2"))
	require.NoError(t, err)
	assert.Equal(t, "PO-2", order.Number)
}

func TestAwardNumberExhaustionRollsBack(t *testing.T) {
	f := setup(t)
	_, err := f.db.NewInsert().Model(&entity.PurchaseOrder{
		Number: "PO-1", RFPID: 99, QuoteID: 99, VendorID: 9, BuyerID: 9,
		TotalAmount: decimal.NewFromInt(1), Status: entity.OrderPending, CreatedAt: now,
	}).Exec(context.Background())
	require.NoError(t, err)

	_, err = f.award(f.quotes[0], sequence("PO-1"))
	require.ErrorIs(t, err, ErrNumberExhausted)
	assert.Equal(t, entity.QuoteSubmitted, f.quoteStatus(t, f.quotes[0].ID))
}

func TestDecidePendingOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	order, err := f.award(f.quotes[0], sequence("PO-1"))
	require.NoError(t, err)

	decided, err := f.repo.Decide(ctx, order.ID, entity.ApprovalRecord{
		ApproverID: 3, Decision: entity.DecisionApproved, Comments: "ok", DecidedAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderApproved, decided.Status)
	require.Len(t, decided.Approvals, 2)
	assert.Equal(t, int64(3), decided.Approvals[1].ApproverID)
	assert.Equal(t, "ok", decided.Approvals[1].Comments)

	_, err = f.repo.Decide(ctx, order.ID, entity.ApprovalRecord{
		ApproverID: 4, Decision: entity.DecisionRejected, DecidedAt: now.Add(2 * time.Hour),
	})
	require.ErrorIs(t, err, repository.ErrConflict)

	got, err := f.repo.Get(ctx, order.ID, policy.OrderScope{})
	require.NoError(t, err)
	require.Len(t, got.Approvals, 2)
	assert.Equal(t, entity.DecisionApproved, got.Approvals[1].Decision)

	_, err = f.repo.Decide(ctx, 404, entity.ApprovalRecord{ApproverID: 3, Decision: entity.DecisionApproved, DecidedAt: now})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDecideReadsBackFromWriter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	order, err := f.award(f.quotes[0], sequence("PO-1"))
	require.NoError(t, err)

	lagging := repotest.Replica(t, (*entity.PurchaseOrder)(nil), (*entity.ApprovalRecord)(nil))
	repo := NewRepository(repotest.Split(f.db, lagging))

	decided, err := repo.Decide(ctx, order.ID, entity.ApprovalRecord{
		ApproverID: 3, Decision: entity.DecisionRejected, Comments: "over budget", DecidedAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, order.Number, decided.Number)
	assert.Equal(t, entity.OrderRejected, decided.Status)
	assert.False(t, decided.DecidedAt.IsZero())
	require.Len(t, decided.Approvals, 2)
	assert.Equal(t, entity.DecisionRejected, decided.Approvals[1].Decision)

	_, err = repo.Get(ctx, order.ID, policy.OrderScope{})
	require.ErrorIs(t, err, repository.ErrNotFound, "reads still go to the reader")
}

func TestScopedReads(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	order, err := f.award(f.quotes[0], sequence("PO-1"))
	require.NoError(t, err)

	_, err = f.repo.Get(ctx, order.ID, policy.OrderScope{VendorID: 6})
	require.ErrorIs(t, err, repository.ErrNotFound)

	got, err := f.repo.Get(ctx, order.ID, policy.OrderScope{VendorID: 5})
	require.NoError(t, err)
	assert.Equal(t, order.Number, got.Number)

	list, err := f.repo.List(ctx, policy.OrderScope{BuyerID: 2})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.repo.List(ctx, policy.OrderScope{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
