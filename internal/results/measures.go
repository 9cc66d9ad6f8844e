package results

import "strconv"

// Measures are the backend-computed statistics for a project's history.
type Measures struct {
	Mean   Score `json:"mean"`
	Median Score `json:"median"`
	Std    Score `json:"std"`
	Min    Score `json:"min"`
	Max    Score `json:"max"`
	Count  Score `json:"count"`
}

// Measure is one labelled statistic prepared for display.
type Measure struct {
	Label string
	Key   string
	Value string
}

// Cards returns the measures in display order with two decimals each.
func (m Measures) Cards() []Measure {
	return []Measure{
		{Label: "Mean Score", Key: "mean", Value: FormatScore(m.Mean.Float())},
		{Label: "Median", Key: "median", Value: FormatScore(m.Median.Float())},
		{Label: "Std Deviation", Key: "std", Value: FormatScore(m.Std.Float())},
		{Label: "Min Value", Key: "min", Value: FormatScore(m.Min.Float())},
		{Label: "Max Value", Key: "max", Value: FormatScore(m.Max.Float())},
		{Label: "Total Samples", Key: "count", Value: FormatScore(m.Count.Float())},
	}
}

// FormatScore renders a value with two decimals.
func FormatScore(v float64) string {
	return strconv.FormatFloat(finite(v), 'f', 2, 64)
}
