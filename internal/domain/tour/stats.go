package tour

import "context"

// DifficultyStats aggregates the well rated tours of one difficulty.
type DifficultyStats struct {
	Difficulty Difficulty `json:"difficulty"`
	NumTours   int        `json:"numTours"`
	NumRatings int        `json:"numRatings"`
	AvgRating  float64    `json:"avgRating"`
	AvgPrice   float64    `json:"avgPrice"`
	MinPrice   float64    `json:"minPrice"`
	MaxPrice   float64    `json:"maxPrice"`
}

// MonthPlan lists the tours starting in one month of a year.
type MonthPlan struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}

// StatsMinRating is the lowest average a tour needs to count in the stats.
const StatsMinRating = 4.5

// Aggregator computes the read-only tour reports. Secret tours never count.
type Aggregator interface {
	Stats(ctx context.Context) ([]DifficultyStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]MonthPlan, error)
}
