package dto

import "github.com/Additional-Code/procura/internal/ranking"

// SavingsResponse is the saving against the RFP budget.
type SavingsResponse struct {
	Amount     float64 `json:"amount"`
	Percentage int     `json:"percentage"`
}

// ScoredQuoteResponse is a quote with its ranking.
type ScoredQuoteResponse struct {
	Quote          QuoteResponse   `json:"quote"`
	OverallScore   int             `json:"overall_score"`
	PriceScore     int             `json:"price_score"`
	DeliveryScore  int             `json:"delivery_score"`
	Recommendation string          `json:"recommendation"`
	RiskLevel      string          `json:"risk_level"`
	Insights       []string        `json:"insights"`
	Savings        SavingsResponse `json:"savings"`
}

// AdviceResponse is a summary-level recommendation.
type AdviceResponse struct {
	Type    string `json:"type"`
	QuoteID int64  `json:"quote_id"`
	Message string `json:"message"`
}

// EvaluationSummary aggregates an evaluation.
type EvaluationSummary struct {
	TotalQuotes     int   `json:"total_quotes"`
	AverageScore    int   `json:"average_score"`
	BestOverall     int64 `json:"best_overall"`
	BestPrice       int64 `json:"best_price"`
	FastestDelivery int64 `json:"fastest_delivery"`
}

// EvaluationResponse is the ranked view of an RFP's quotes.
type EvaluationResponse struct {
	RFPID           int64                 `json:"rfp_id"`
	Ranked          []ScoredQuoteResponse `json:"analyzed_quotes"`
	Summary         EvaluationSummary     `json:"summary"`
	Recommendations []AdviceResponse      `json:"recommendations"`
}

// FromEvaluation maps a ranking result; quote looks up the full quote by id.
func FromEvaluation(rfpID int64, eval ranking.Evaluation, quote func(id int64) QuoteResponse) EvaluationResponse {
	ranked := make([]ScoredQuoteResponse, len(eval.Ranked))
	for i, s := range eval.Ranked {
		ranked[i] = ScoredQuoteResponse{
			Quote:          quote(s.QuoteID),
			OverallScore:   s.Composite,
			PriceScore:     s.PriceScore,
			DeliveryScore:  s.DeliveryScore,
			Recommendation: s.Recommendation,
			RiskLevel:      s.Risk,
			Insights:       s.Insights,
			Savings:        SavingsResponse{Amount: s.Savings.Amount, Percentage: s.Savings.Percentage},
		}
	}
	advice := make([]AdviceResponse, len(eval.Summary.Recommendations))
	for i, a := range eval.Summary.Recommendations {
		advice[i] = AdviceResponse{Type: a.Kind, QuoteID: a.QuoteID, Message: a.Message}
	}
	return EvaluationResponse{
		RFPID:  rfpID,
		Ranked: ranked,
		Summary: EvaluationSummary{
			TotalQuotes:     eval.Summary.TotalQuotes,
			AverageScore:    eval.Summary.AverageScore,
			BestOverall:     eval.Summary.BestOverall,
			BestPrice:       eval.Summary.BestPrice,
			FastestDelivery: eval.Summary.FastestDelivery,
		},
		Recommendations: advice,
	}
}
