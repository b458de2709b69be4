// Package ranking scores competing quotes for one RFP. It performs no I/O.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNoCandidates is returned when there is nothing to rank.
var ErrNoCandidates = errors.New("ranking: at least one candidate is required")

const (
	DefaultPriceWeight    = 0.6
	DefaultDeliveryWeight = 0.4
)

// Recommendation tiers.
const (
	HighlyRecommended   = "Highly Recommended"
	Recommended         = "Recommended"
	ConsiderWithCaution = "Consider with Caution"
)

// Risk tiers.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// Candidate is one quote as seen by the engine.
type Candidate struct {
	QuoteID      int64
	VendorID     int64
	Price        float64
	DeliveryDays int
}

// Savings against the RFP budget.
type Savings struct {
	Amount     float64
	Percentage int
}

// Scored is a candidate together with its scores and verdicts.
type Scored struct {
	Candidate
	PriceScore     int
	DeliveryScore  int
	Composite      int
	Recommendation string
	Risk           string
	Savings        Savings
	Insights       []string
}

// Advice is a summary-level recommendation.
type Advice struct {
	Kind    string
	QuoteID int64
	Message string
}

// Summary aggregates an evaluation.
type Summary struct {
	TotalQuotes     int
	AverageScore    int
	BestOverall     int64
	BestPrice       int64
	FastestDelivery int64
	Recommendations []Advice
}

// Evaluation is the engine output. Ranked is ordered by composite score,
// highest first; equal scores keep their input order.
type Evaluation struct {
	Ranked  []Scored
	Summary Summary
}

// Scorer combines normalised price and delivery scores into a composite.
type Scorer interface {
	Score(price, delivery float64) float64
}

// WeightedScorer is a linear blend of the two axes.
type WeightedScorer struct {
	PriceWeight    float64
	DeliveryWeight float64
}

// NewWeightedScorer validates the weights.
func NewWeightedScorer(price, delivery float64) (WeightedScorer, error) {
	if price < 0 || delivery < 0 {
		return WeightedScorer{}, fmt.Errorf("ranking: weights must be non-negative")
	}
	if math.Abs(price+delivery-1) > 1e-9 {
		return WeightedScorer{}, fmt.Errorf("ranking: weights must sum to 1, got %.4f", price+delivery)
	}
	return WeightedScorer{PriceWeight: price, DeliveryWeight: delivery}, nil
}

// DefaultScorer is the 60/40 price/delivery blend.
func DefaultScorer() WeightedScorer {
	return WeightedScorer{PriceWeight: DefaultPriceWeight, DeliveryWeight: DefaultDeliveryWeight}
}

// Score implements Scorer.
func (w WeightedScorer) Score(price, delivery float64) float64 {
	return w.PriceWeight*price + w.DeliveryWeight*delivery
}

// Engine ranks candidates with a Scorer.
type Engine struct {
	scorer Scorer
}

// NewEngine returns an engine using scorer, or the default scorer when nil.
func NewEngine(scorer Scorer) *Engine {
	if scorer == nil {
		scorer = DefaultScorer()
	}
	return &Engine{scorer: scorer}
}

// Rank scores candidates. A budget <= 0 is treated as absent.
func (e *Engine) Rank(candidates []Candidate, budget float64) (Evaluation, error) {
	if len(candidates) == 0 {
		return Evaluation{}, ErrNoCandidates
	}

	minPrice, maxPrice := candidates[0].Price, candidates[0].Price
	minDays, maxDays := candidates[0].DeliveryDays, candidates[0].DeliveryDays
	for _, c := range candidates[1:] {
		minPrice = math.Min(minPrice, c.Price)
		maxPrice = math.Max(maxPrice, c.Price)
		minDays = min(minDays, c.DeliveryDays)
		maxDays = max(maxDays, c.DeliveryDays)
	}

	scored := make([]Scored, len(candidates))
	total := 0
	for i, c := range candidates {
		price := normalise(c.Price, minPrice, maxPrice)
		delivery := normalise(float64(c.DeliveryDays), float64(minDays), float64(maxDays))
		composite := round(e.scorer.Score(price, delivery))
		total += composite

		scored[i] = Scored{
			Candidate:      c,
			PriceScore:     round(price),
			DeliveryScore:  round(delivery),
			Composite:      composite,
			Recommendation: recommendation(composite),
			Risk:           risk(composite),
			Savings:        savings(c.Price, budget),
			Insights:       insights(price, delivery),
		}
	}

	summary := Summary{
		TotalQuotes:  len(candidates),
		AverageScore: round(float64(total) / float64(len(candidates))),
	}
	cheapest, fastest := -1, -1
	for i, c := range candidates {
		if cheapest < 0 && c.Price == minPrice {
			cheapest = i
		}
		if fastest < 0 && c.DeliveryDays == minDays {
			fastest = i
		}
	}
	summary.BestPrice = candidates[cheapest].QuoteID
	summary.FastestDelivery = candidates[fastest].QuoteID

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Composite > scored[j].Composite
	})

	best := scored[0]
	summary.BestOverall = best.QuoteID
	summary.Recommendations = []Advice{{
		Kind:    "top_choice",
		QuoteID: best.QuoteID,
		Message: "offers the best balance of price and delivery",
	}}
	if summary.BestPrice != best.QuoteID {
		summary.Recommendations = append(summary.Recommendations, Advice{
			Kind:    "cost_saving",
			QuoteID: summary.BestPrice,
			Message: "offers the lowest price",
		})
	}

	return Evaluation{Ranked: scored, Summary: summary}, nil
}

// normalise maps v into [0,100] where the smallest value scores 100.
func normalise(v, lo, hi float64) float64 {
	if hi == lo {
		return 100
	}
	return (hi - v) / (hi - lo) * 100
}

func recommendation(composite int) string {
	switch {
	case composite > 80:
		return HighlyRecommended
	case composite > 60:
		return Recommended
	default:
		return ConsiderWithCaution
	}
}

func risk(composite int) string {
	switch {
	case composite > 70:
		return RiskLow
	case composite > 50:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func savings(price, budget float64) Savings {
	if budget <= 0 || price >= budget {
		return Savings{}
	}
	amount := budget - price
	return Savings{Amount: amount, Percentage: round(amount / budget * 100)}
}

func insights(price, delivery float64) []string {
	out := make([]string, 0, 2)
	switch {
	case price > 80:
		out = append(out, "Excellent price competitiveness")
	case price > 60:
		out = append(out, "Good price point")
	default:
		out = append(out, "Higher price - consider negotiation")
	}
	switch {
	case delivery > 80:
		out = append(out, "Fast delivery timeline")
	case delivery > 60:
		out = append(out, "Reasonable delivery time")
	default:
		out = append(out, "Longer delivery period")
	}
	return out
}

func round(v float64) int {
	return int(math.Round(v))
}
