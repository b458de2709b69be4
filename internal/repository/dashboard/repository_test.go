package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/repository/repotest"
)

var now = time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T) *Repository {
	t.Helper()
	db := repotest.Open(t,
		(*entity.User)(nil),
		(*entity.RFP)(nil),
		(*entity.Quote)(nil),
		(*entity.PurchaseOrder)(nil),
	)
	ctx := context.Background()
	insert := func(m any) {
		_, err := db.NewInsert().Model(m).Exec(ctx)
		require.NoError(t, err)
	}

	insert(&[]entity.User{
		{Name: "b", Email: "b@x.test", PasswordHash: "h", Role: entity.RoleBuyer, Company: "x", Approved: true},
		{Name: "v", Email: "v@x.test", PasswordHash: "h", Role: entity.RoleVendor, Company: "x"},
	})
	insert(&[]entity.RFP{
		{Title: "a", Description: "d", Category: "IT", Budget: decimal.NewFromInt(10), Deadline: now, Requirements: []string{}, Attachments: []string{}, Status: entity.RFPPublished, CreatedBy: 1, CreatedAt: now},
		{Title: "b", Description: "d", Category: "IT", Budget: decimal.NewFromInt(10), Deadline: now, Requirements: []string{}, Attachments: []string{}, Status: entity.RFPDraft, CreatedBy: 1, CreatedAt: now},
		{Title: "c", Description: "d", Category: "IT", Budget: decimal.NewFromInt(10), Deadline: now, Requirements: []string{}, Attachments: []string{}, Status: entity.RFPPublished, CreatedBy: 2, CreatedAt: now},
	})
	insert(&[]entity.Quote{
		{RFPID: 1, VendorID: 5, TotalPrice: decimal.NewFromInt(100), DeliveryTime: 5, Items: []entity.QuoteItem{}, Attachments: []string{}, Status: entity.QuoteAccepted, SubmittedAt: now},
		{RFPID: 3, VendorID: 5, TotalPrice: decimal.NewFromInt(200), DeliveryTime: 5, Items: []entity.QuoteItem{}, Attachments: []string{}, Status: entity.QuoteSubmitted, SubmittedAt: now},
	})
	insert(&[]entity.PurchaseOrder{
		{Number: "PO-1", RFPID: 1, QuoteID: 1, VendorID: 5, BuyerID: 1, TotalAmount: decimal.RequireFromString("1250.50"), Status: entity.OrderApproved, CreatedAt: now.Add(-48 * time.Hour), DecidedAt: now.Add(-24 * time.Hour)},
		{Number: "PO-2", RFPID: 3, QuoteID: 2, VendorID: 5, BuyerID: 2, TotalAmount: decimal.RequireFromString("990.00"), Status: entity.OrderPending, CreatedAt: now},
	})
	return NewRepository(repotest.Connections(db))
}

func TestCounts(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	users, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, users)

	rfps, err := repo.CountRFPs(ctx, RFPFilter{CreatedBy: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, rfps)

	published, err := repo.CountRFPs(ctx, RFPFilter{Status: entity.RFPPublished})
	require.NoError(t, err)
	assert.Equal(t, 2, published)

	accepted, err := repo.CountQuotes(ctx, QuoteFilter{VendorID: 5, Status: entity.QuoteAccepted})
	require.NoError(t, err)
	assert.Equal(t, 1, accepted)

	pending, err := repo.CountOrders(ctx, OrderFilter{Status: entity.OrderPending})
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestSumOrderTotals(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	all, err := repo.SumOrderTotals(ctx, OrderFilter{VendorID: 5})
	require.NoError(t, err)
	assert.True(t, all.Equal(decimal.RequireFromString("2240.50")), all.String())

	none, err := repo.SumOrderTotals(ctx, OrderFilter{BuyerID: 42})
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}

func TestDecisionLatencies(t *testing.T) {
	repo := seed(t)

	got, err := repo.DecisionLatencies(context.Background(), OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{24 * time.Hour}, got)
}

