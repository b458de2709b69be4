package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// QuoteStatus is the lifecycle state of a vendor quote.
type QuoteStatus string

const (
	QuoteSubmitted   QuoteStatus = "submitted"
	QuoteUnderReview QuoteStatus = "under_review"
	QuoteAccepted    QuoteStatus = "accepted"
	QuoteRejected    QuoteStatus = "rejected"
)

// QuoteItem is a priced line of a quote. LineTotal is always derived.
type QuoteItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Quote is a vendor's priced, timed response to an RFP.
type Quote struct {
	bun.BaseModel `bun:"table:quotes"`

	ID           int64           `bun:",pk,autoincrement"`
	RFPID        int64           `bun:"rfp_id,notnull"`
	VendorID     int64           `bun:"vendor_id,notnull"`
	TotalPrice   decimal.Decimal `bun:"total_price,type:numeric(14,2),notnull"`
	DeliveryTime int             `bun:"delivery_time,notnull"`
	Items        []QuoteItem     `bun:"items,type:jsonb"`
	Terms        string          `bun:"terms"`
	Attachments  []string        `bun:"attachments,type:jsonb"`
	Status       QuoteStatus     `bun:"status,notnull"`
	SubmittedAt  time.Time       `bun:"submitted_at,nullzero,notnull,default:current_timestamp"`
}
