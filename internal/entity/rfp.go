package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// RFPStatus is the lifecycle state of a request for proposal.
type RFPStatus string

const (
	RFPDraft     RFPStatus = "draft"
	RFPPublished RFPStatus = "published"
	RFPClosed    RFPStatus = "closed"
	RFPAwarded   RFPStatus = "awarded"
)

// RFP is a buyer's solicitation for vendor quotes.
type RFP struct {
	bun.BaseModel `bun:"table:rfps"`

	ID           int64           `bun:",pk,autoincrement"`
	Title        string          `bun:"title,notnull"`
	Description  string          `bun:"description,notnull"`
	Category     string          `bun:"category,notnull"`
	Budget       decimal.Decimal `bun:"budget,type:numeric(14,2),notnull"`
	Deadline     time.Time       `bun:"deadline,notnull"`
	Requirements []string        `bun:"requirements,type:jsonb"`
	Attachments  []string        `bun:"attachments,type:jsonb"`
	Status       RFPStatus       `bun:"status,notnull"`
	CreatedBy    int64           `bun:"created_by,notnull"`
	CreatedAt    time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time       `bun:"updated_at,nullzero"`
}
