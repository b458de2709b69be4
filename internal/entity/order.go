package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// OrderStatus is the approval state of a purchase order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderApproved  OrderStatus = "approved"
	OrderRejected  OrderStatus = "rejected"
	OrderCompleted OrderStatus = "completed"
)

// Decision is the outcome an approver records against a pending order.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Valid reports whether d is an accepted approval decision.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// OrderStatus returns the order status a decision transitions to.
func (d Decision) OrderStatus() OrderStatus {
	if d == DecisionApproved {
		return OrderApproved
	}
	return OrderRejected
}

// PurchaseOrder is created when a buyer awards a quote. TotalAmount is a
// snapshot of the quote total at award time.
type PurchaseOrder struct {
	bun.BaseModel `bun:"table:purchase_orders"`

	ID          int64           `bun:",pk,autoincrement"`
	Number      string          `bun:"number,notnull,unique"`
	RFPID       int64           `bun:"rfp_id,notnull"`
	QuoteID     int64           `bun:"quote_id,notnull,unique"`
	VendorID    int64           `bun:"vendor_id,notnull"`
	BuyerID     int64           `bun:"buyer_id,notnull"`
	TotalAmount decimal.Decimal `bun:"total_amount,type:numeric(14,2),notnull"`
	Status      OrderStatus     `bun:"status,notnull"`
	CreatedAt   time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time       `bun:"updated_at,nullzero"`
	DecidedAt   time.Time       `bun:"decided_at,nullzero"`

	Approvals []ApprovalRecord `bun:"rel:has-many,join:id=order_id"`
}

// ApprovalRecord is one immutable entry of a purchase order's decision log.
type ApprovalRecord struct {
	bun.BaseModel `bun:"table:approval_records"`

	ID         int64     `bun:",pk,autoincrement"`
	OrderID    int64     `bun:"order_id,notnull"`
	ApproverID int64     `bun:"approver_id,notnull"`
	Decision   Decision  `bun:"decision,notnull"`
	Comments   string    `bun:"comments"`
	DecidedAt  time.Time `bun:"decided_at,notnull"`
}
