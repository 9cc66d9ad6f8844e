// Package results holds the Result Record model and the pure aggregation
// functions the project and statistics screens are built on.
//
// Every function here is total: empty input, missing optional fields and
// malformed numbers produce well-defined results and never an error. Numeric
// coercion happens once, when records are decoded (see Score and Count).
package results

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Bucket is a sentiment classification of an average score.
type Bucket string

const (
	All      Bucket = "all"
	Positive Bucket = "positive"
	Neutral  Bucket = "neutral"
	Negative Bucket = "negative"
)

// Buckets lists the filter choices in display order.
var Buckets = []Bucket{All, Positive, Neutral, Negative}

// Classification thresholds. Values equal to a threshold are neutral.
const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

// DefaultPageSize is used when a caller asks for a page size below 1.
const DefaultPageSize = 10

// ParseBucket parses a bucket name, case-insensitively. Empty means All.
func ParseBucket(s string) (Bucket, error) {
	switch Bucket(strings.ToLower(strings.TrimSpace(s))) {
	case "", All:
		return All, nil
	case Positive:
		return Positive, nil
	case Neutral:
		return Neutral, nil
	case Negative:
		return Negative, nil
	}
	return "", fmt.Errorf("unknown score bucket %q (want all, positive, neutral or negative)", s)
}

// Classify maps a score to positive, neutral or negative.
func Classify(score float64) Bucket {
	switch {
	case score > PositiveThreshold:
		return Positive
	case score < NegativeThreshold:
		return Negative
	default:
		return Neutral
	}
}

// SortByRecency returns a copy ordered by created_at, newest first. Records
// without a usable timestamp go last; ties keep their input order.
func SortByRecency(records []Record) []Record {
	out := clone(records)
	type entry struct {
		rec   Record
		valid bool
		unix  int64
	}
	entries := make([]entry, len(out))
	for i, r := range out {
		t, ok := r.Created()
		entries[i] = entry{rec: r, valid: ok}
		if ok {
			entries[i].unix = t.UnixNano()
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.valid != b.valid {
			return a.valid
		}
		return a.valid && a.unix > b.unix
	})
	for i, e := range entries {
		out[i] = e.rec
	}
	return out
}

// FilterByYear keeps records whose analysis window touches the given year.
// A blank year returns all records. The window is date_from/date_to; when
// both are absent, created_at decides.
func FilterByYear(records []Record, year string) []Record {
	year = strings.TrimSpace(year)
	if year == "" {
		return clone(records)
	}
	want, err := strconv.Atoi(year)
	if err != nil {
		return []Record{}
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if recordYearMatches(r, want) {
			out = append(out, r)
		}
	}
	return out
}

func recordYearMatches(r Record, want int) bool {
	from, okFrom := ParseTimestamp(string(r.DateFrom))
	to, okTo := ParseTimestamp(string(r.DateTo))
	switch {
	case okFrom && okTo:
		lo, hi := from.Year(), to.Year()
		if lo > hi {
			lo, hi = hi, lo
		}
		return want >= lo && want <= hi
	case okFrom:
		return from.Year() == want
	case okTo:
		return to.Year() == want
	}
	if t, ok := r.Created(); ok {
		return t.Year() == want
	}
	return false
}

// FilterByScoreBucket keeps records in the given bucket. All returns every
// record.
func FilterByScoreBucket(records []Record, bucket Bucket) []Record {
	if bucket == All || bucket == "" {
		return clone(records)
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Bucket() == bucket {
			out = append(out, r)
		}
	}
	return out
}

// SimpleAverage is the unweighted mean of avg_sentiment. The project library
// card uses this form.
func SimpleAverage(records []Record) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += r.AvgSentiment.Float()
	}
	return finite(sum / float64(len(records)))
}

// WeightedAverage weights each record's avg_sentiment by its opinions_count.
func WeightedAverage(records []Record) float64 {
	var sum, weight float64
	for _, r := range records {
		w := float64(r.OpinionsCount.Int())
		sum += r.AvgSentiment.Float() * w
		weight += w
	}
	if weight == 0 {
		return 0
	}
	return finite(sum / weight)
}

// Page is one slice of a paginated view.
type Page struct {
	Items      []Record
	Number     int
	Size       int
	Total      int
	TotalPages int
	HasPrev    bool
	HasNext    bool
}

// PrevNumber is the previous page number, or the current one on page 1.
func (p Page) PrevNumber() int {
	if p.HasPrev {
		return p.Number - 1
	}
	return p.Number
}

// NextNumber is the next page number, or the current one on the last page.
func (p Page) NextNumber() int {
	if p.HasNext {
		return p.Number + 1
	}
	return p.Number
}

// Paginate returns the 1-indexed page of records. An empty input has one
// empty page; out-of-range page numbers are clamped.
func Paginate(records []Record, pageSize, pageNumber int) Page {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	total := len(records)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageNumber > totalPages {
		pageNumber = totalPages
	}

	start := (pageNumber - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Items:      clone(records[start:end]),
		Number:     pageNumber,
		Size:       pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    pageNumber > 1,
		HasNext:    pageNumber < totalPages,
	}
}

// Distribution totals the per-bucket opinion counts of a set of records.
type Distribution struct {
	Positive int
	Neutral  int
	Negative int
	Opinions int
}

// SummarizeCounts adds up the count fields across records.
func SummarizeCounts(records []Record) Distribution {
	var d Distribution
	for _, r := range records {
		d.Positive += r.PositiveCount.Int()
		d.Neutral += r.NeutralCount.Int()
		d.Negative += r.NegativeCount.Int()
		d.Opinions += r.OpinionsCount.Int()
	}
	return d
}

// Count returns the total for one bucket. All returns the opinions total.
func (d Distribution) Count(b Bucket) int {
	switch b {
	case Positive:
		return d.Positive
	case Neutral:
		return d.Neutral
	case Negative:
		return d.Negative
	}
	return d.Opinions
}

// Percent returns the share of a bucket in [0, 100]. The denominator is the
// opinions total, or the bucket sum when no opinions total was reported.
func (d Distribution) Percent(b Bucket) float64 {
	total := d.Opinions
	if total == 0 {
		total = d.Positive + d.Neutral + d.Negative
	}
	if total == 0 {
		return 0
	}
	return finite(float64(d.Count(b)) * 100 / float64(total))
}

func clone(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
