package ranking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRankEmpty(t *testing.T) {
	_, err := NewEngine(nil).Rank(nil, 0)
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestRankPriceSpread(t *testing.T) {
	candidates := []Candidate{
		{QuoteID: 3, VendorID: 30, Price: 300, DeliveryDays: 10},
		{QuoteID: 1, VendorID: 10, Price: 100, DeliveryDays: 10},
		{QuoteID: 2, VendorID: 20, Price: 200, DeliveryDays: 10},
	}

	eval, err := NewEngine(nil).Rank(candidates, 0)
	require.NoError(t, err)
	require.Len(t, eval.Ranked, 3)

	require.Equal(t, []int64{1, 2, 3}, quoteIDs(eval.Ranked))
	require.Equal(t, 100, eval.Ranked[0].PriceScore)
	require.Equal(t, 50, eval.Ranked[1].PriceScore)
	require.Equal(t, 0, eval.Ranked[2].PriceScore)

	for _, s := range eval.Ranked {
		require.Equal(t, 100, s.DeliveryScore)
	}
	require.Equal(t, 100, eval.Ranked[0].Composite)
	require.Equal(t, 70, eval.Ranked[1].Composite)
	require.Equal(t, 40, eval.Ranked[2].Composite)

	require.Equal(t, HighlyRecommended, eval.Ranked[0].Recommendation)
	require.Equal(t, Recommended, eval.Ranked[1].Recommendation)
	require.Equal(t, ConsiderWithCaution, eval.Ranked[2].Recommendation)
	require.Equal(t, RiskLow, eval.Ranked[0].Risk)
	require.Equal(t, RiskMedium, eval.Ranked[1].Risk)
	require.Equal(t, RiskHigh, eval.Ranked[2].Risk)
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	candidates := []Candidate{
		{QuoteID: 9, Price: 500, DeliveryDays: 20},
		{QuoteID: 4, Price: 250, DeliveryDays: 5},
		{QuoteID: 7, Price: 500, DeliveryDays: 20},
		{QuoteID: 2, Price: 500, DeliveryDays: 20},
	}

	eval, err := NewEngine(nil).Rank(candidates, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{4, 9, 7, 2}, quoteIDs(eval.Ranked))
	require.Equal(t, eval.Ranked[1].Composite, eval.Ranked[2].Composite)
	require.Equal(t, eval.Ranked[2].Composite, eval.Ranked[3].Composite)
}

func TestRankSingleCandidate(t *testing.T) {
	eval, err := NewEngine(nil).Rank([]Candidate{{QuoteID: 1, Price: 10, DeliveryDays: 3}}, 0)
	require.NoError(t, err)
	require.Equal(t, 100, eval.Ranked[0].Composite)
	require.Len(t, eval.Summary.Recommendations, 1)
}

func TestSavings(t *testing.T) {
	eval, err := NewEngine(nil).Rank([]Candidate{
		{QuoteID: 1, Price: 800, DeliveryDays: 7},
		{QuoteID: 2, Price: 1200, DeliveryDays: 7},
	}, 1000)
	require.NoError(t, err)

	require.Equal(t, Savings{Amount: 200, Percentage: 20}, eval.Ranked[0].Savings)
	require.Equal(t, Savings{}, eval.Ranked[1].Savings)

	eval, err = NewEngine(nil).Rank([]Candidate{{QuoteID: 1, Price: 800, DeliveryDays: 7}}, 0)
	require.NoError(t, err)
	require.Equal(t, Savings{}, eval.Ranked[0].Savings)
}

func TestSummaryAndAdvice(t *testing.T) {
	candidates := []Candidate{
		{QuoteID: 1, Price: 100, DeliveryDays: 30},
		{QuoteID: 2, Price: 110, DeliveryDays: 2},
	}

	eval, err := NewEngine(nil).Rank(candidates, 0)
	require.NoError(t, err)

	// price 100/0, delivery 0/100 -> composites 60 and 40
	require.Equal(t, int64(1), eval.Summary.BestOverall)
	require.Equal(t, int64(1), eval.Summary.BestPrice)
	require.Equal(t, int64(2), eval.Summary.FastestDelivery)
	require.Equal(t, 50, eval.Summary.AverageScore)
	require.Len(t, eval.Summary.Recommendations, 1)

	delivery, err := NewWeightedScorer(0.2, 0.8)
	require.NoError(t, err)
	eval, err = NewEngine(delivery).Rank(candidates, 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), eval.Summary.BestOverall)
	require.Len(t, eval.Summary.Recommendations, 2)
	require.Equal(t, "cost_saving", eval.Summary.Recommendations[1].Kind)
	require.Equal(t, int64(1), eval.Summary.Recommendations[1].QuoteID)
}

func TestInsights(t *testing.T) {
	eval, err := NewEngine(nil).Rank([]Candidate{
		{QuoteID: 1, Price: 100, DeliveryDays: 10},
		{QuoteID: 2, Price: 200, DeliveryDays: 1},
	}, 0)
	require.NoError(t, err)

	byID := map[int64][]string{}
	for _, s := range eval.Ranked {
		byID[s.QuoteID] = s.Insights
	}
	require.Equal(t, []string{"Excellent price competitiveness", "Longer delivery period"}, byID[1])
	require.Equal(t, []string{"Higher price - consider negotiation", "Fast delivery timeline"}, byID[2])
}

func TestNewWeightedScorerValidation(t *testing.T) {
	_, err := NewWeightedScorer(0.5, 0.6)
	require.Error(t, err)
	_, err = NewWeightedScorer(-0.1, 1.1)
	require.Error(t, err)
	s, err := NewWeightedScorer(1, 0)
	require.NoError(t, err)
	require.InDelta(t, 42.0, s.Score(42, 99), 1e-9)
}

func quoteIDs(scored []Scored) []int64 {
	ids := make([]int64, len(scored))
	for i, s := range scored {
		ids[i] = s.QuoteID
	}
	return ids
}
