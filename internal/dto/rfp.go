package dto

import (
	"encoding/json"
	"time"

	"github.com/Additional-Code/procura/internal/entity"
)

// RFPResponse represents an RFP as exposed via transport layers.
type RFPResponse struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Category     string      `json:"category"`
	Budget       json.Number `json:"budget"`
	Deadline     string      `json:"deadline"`
	Requirements []string    `json:"requirements"`
	Attachments  []string    `json:"attachments"`
	Status       string      `json:"status"`
	CreatedBy    int64       `json:"created_by"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// FromRFP maps an RFP entity.
func FromRFP(r *entity.RFP) RFPResponse {
	return RFPResponse{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Budget:       Money(r.Budget),
		Deadline:     r.Deadline.Format(time.DateOnly),
		Requirements: nonNil(r.Requirements),
		Attachments:  nonNil(r.Attachments),
		Status:       string(r.Status),
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// FromRFPs maps a list of RFP entities.
func FromRFPs(rs []entity.RFP) []RFPResponse {
	out := make([]RFPResponse, len(rs))
	for i := range rs {
		out[i] = FromRFP(&rs[i])
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
