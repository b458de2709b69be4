package dto

import (
	"encoding/json"
	"time"

	"github.com/Additional-Code/procura/internal/entity"
)

// ApprovalResponse is one entry of an order's approval log.
type ApprovalResponse struct {
	ApproverID int64     `json:"approver_id"`
	Decision   string    `json:"decision"`
	Comments   string    `json:"comments,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

// OrderResponse represents a purchase order as exposed via transport layers.
type OrderResponse struct {
	ID          int64              `json:"id"`
	Number      string             `json:"number"`
	RFPID       int64              `json:"rfp_id"`
	QuoteID     int64              `json:"quote_id"`
	VendorID    int64              `json:"vendor_id"`
	BuyerID     int64              `json:"buyer_id"`
	TotalAmount json.Number        `json:"total_amount"`
	Status      string             `json:"status"`
	Approvals   []ApprovalResponse `json:"approvals"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	DecidedAt   *time.Time         `json:"decided_at,omitempty"`
}

// FromOrder maps a purchase order entity.
func FromOrder(o *entity.PurchaseOrder) OrderResponse {
	approvals := make([]ApprovalResponse, len(o.Approvals))
	for i, a := range o.Approvals {
		approvals[i] = ApprovalResponse{
			ApproverID: a.ApproverID,
			Decision:   string(a.Decision),
			Comments:   a.Comments,
			DecidedAt:  a.DecidedAt,
		}
	}
	resp := OrderResponse{
		ID:          o.ID,
		Number:      o.Number,
		RFPID:       o.RFPID,
		QuoteID:     o.QuoteID,
		VendorID:    o.VendorID,
		BuyerID:     o.BuyerID,
		TotalAmount: Money(o.TotalAmount),
		Status:      string(o.Status),
		Approvals:   approvals,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if !o.DecidedAt.IsZero() {
		decided := o.DecidedAt
		resp.DecidedAt = &decided
	}
	return resp
}

// FromOrders maps a list of purchase order entities.
func FromOrders(orders []entity.PurchaseOrder) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = FromOrder(&orders[i])
	}
	return out
}
