package dto

import (
	"encoding/json"
	"time"

	"github.com/Additional-Code/procura/internal/entity"
)

// QuoteItemResponse is one priced line.
type QuoteItemResponse struct {
	Description string      `json:"description"`
	Quantity    json.Number `json:"quantity"`
	UnitPrice   json.Number `json:"unit_price"`
	LineTotal   json.Number `json:"line_total"`
}

// QuoteResponse represents a quote as exposed via transport layers.
type QuoteResponse struct {
	ID           int64               `json:"id"`
	RFPID        int64               `json:"rfp_id"`
	VendorID     int64               `json:"vendor_id"`
	TotalPrice   json.Number         `json:"total_price"`
	DeliveryTime int                 `json:"delivery_time"`
	Items        []QuoteItemResponse `json:"items"`
	Terms        string              `json:"terms"`
	Attachments  []string            `json:"attachments"`
	Status       string              `json:"status"`
	SubmittedAt  time.Time           `json:"submitted_at"`
}

// FromQuote maps a quote entity.
func FromQuote(q *entity.Quote) QuoteResponse {
	items := make([]QuoteItemResponse, len(q.Items))
	for i, it := range q.Items {
		items[i] = QuoteItemResponse{
			Description: it.Description,
			Quantity:    json.Number(it.Quantity.String()),
			UnitPrice:   Money(it.UnitPrice),
			LineTotal:   Money(it.LineTotal),
		}
	}
	return QuoteResponse{
		ID:           q.ID,
		RFPID:        q.RFPID,
		VendorID:     q.VendorID,
		TotalPrice:   Money(q.TotalPrice),
		DeliveryTime: q.DeliveryTime,
		Items:        items,
		Terms:        q.Terms,
		Attachments:  nonNil(q.Attachments),
		Status:       string(q.Status),
		SubmittedAt:  q.SubmittedAt,
	}
}

// FromQuotes maps a list of quote entities.
func FromQuotes(qs []entity.Quote) []QuoteResponse {
	out := make([]QuoteResponse, len(qs))
	for i := range qs {
		out[i] = FromQuote(&qs[i])
	}
	return out
}
