// Package preview estimates the sentiment of opinion rows offline with VADER.
// The estimate is shown to the operator before submitting; it never replaces
// the backend's scoring.
package preview

import (
	"html"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/results"
)

var analyzer = govader.NewSentimentIntensityAnalyzer()

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

// Scored is an opinion with its estimated compound score.
type Scored struct {
	api.Opinion
	Compound float64
	Bucket   results.Bucket
}

// Summary aggregates the estimate over a batch.
type Summary struct {
	Items        []Scored
	Mean         float64
	Distribution results.Distribution
}

// Bucket classifies the mean estimate.
func (s Summary) Bucket() results.Bucket {
	return results.Classify(s.Mean)
}

// Record shapes the summary like a backend analysis result, so it can be
// printed with the same formatting.
func (s Summary) Record(projectID results.ID) results.Record {
	return results.Record{
		ProjectID:     projectID,
		OpinionsCount: results.Count(s.Distribution.Opinions),
		AvgSentiment:  results.Score(s.Mean),
		PositiveCount: results.Count(s.Distribution.Positive),
		NeutralCount:  results.Count(s.Distribution.Neutral),
		NegativeCount: results.Count(s.Distribution.Negative),
	}
}

// Score returns the VADER compound score of text in [-1, 1]. Markdown and
// links are stripped first.
func Score(text string) float64 {
	plain := PlainText(text)
	if plain == "" {
		return 0
	}
	return analyzer.PolarityScores(plain).Compound
}

// PlainText renders markdown and drops tags and links.
func PlainText(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")
	out := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	text := html.UnescapeString(tagPattern.ReplaceAllString(string(out), " "))
	text = urlPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Opinions scores every row and summarizes the batch with the same
// thresholds the backend results use.
func Opinions(ops []api.Opinion) Summary {
	s := Summary{Items: make([]Scored, 0, len(ops))}
	var sum float64
	for _, op := range ops {
		c := Score(op.Content)
		b := results.Classify(c)
		s.Items = append(s.Items, Scored{Opinion: op, Compound: c, Bucket: b})
		sum += c
		switch b {
		case results.Positive:
			s.Distribution.Positive++
		case results.Negative:
			s.Distribution.Negative++
		default:
			s.Distribution.Neutral++
		}
	}
	s.Distribution.Opinions = len(ops)
	if len(ops) > 0 {
		s.Mean = sum / float64(len(ops))
	}
	return s
}
