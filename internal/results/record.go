package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ID is an opaque identifier the backend may send as a string or a number.
type ID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*id = ""
		return nil
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as numbers so the backend sees its own shape.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Text is a string field that decodes to empty for null or non-string values.
type Text string

// UnmarshalJSON never fails.
func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = ""
	}
	*t = Text(s)
	return nil
}

func (t Text) String() string { return string(t) }

// Score is a floating-point value decoded with the lenient numeric rule:
// anything that is not a finite number becomes 0.
type Score float64

// UnmarshalJSON never fails.
func (s *Score) UnmarshalJSON(data []byte) error {
	*s = Score(coerce(data))
	return nil
}

// Float returns the score, with NaN and infinities read as 0.
func (s Score) Float() float64 {
	v := float64(s)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Count is a non-negative integer decoded with the lenient numeric rule.
type Count int

// UnmarshalJSON never fails. Fractions truncate, negatives clamp to 0.
func (c *Count) UnmarshalJSON(data []byte) error {
	v := math.Trunc(coerce(data))
	if v < 0 || v > math.MaxInt32 {
		v = 0
	}
	*c = Count(v)
	return nil
}

// Int returns the count, with negatives read as 0.
func (c Count) Int() int {
	if c < 0 {
		return 0
	}
	return int(c)
}

// coerce decodes a raw JSON value into a finite float, defaulting to 0.
func coerce(data []byte) float64 {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}
	var v float64
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		v = f
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return 0
		}
		v = f
	default:
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Record is one persisted outcome of a sentiment-analysis run.
type Record struct {
	ID            ID     `json:"id"`
	ProjectID     ID     `json:"project_id"`
	CreatedAt     Text   `json:"created_at"`
	DateFrom      Text   `json:"date_from"`
	DateTo        Text   `json:"date_to"`
	OpinionsCount Count  `json:"opinions_count"`
	AvgSentiment  Score  `json:"avg_sentiment"`
	PositiveCount Count  `json:"positive_count"`
	NeutralCount  Count  `json:"neutral_count"`
	NegativeCount Count  `json:"negative_count"`
}

// Key returns the record ID, or a synthetic display key when absent.
func (r Record) Key(index int) string {
	if r.ID != "" {
		return string(r.ID)
	}
	return fmt.Sprintf("row-%d", index)
}

// Bucket returns the sentiment bucket of the record's average score.
func (r Record) Bucket() Bucket {
	return Classify(r.AvgSentiment.Float())
}

// Created returns the parsed creation time, if valid.
func (r Record) Created() (time.Time, bool) {
	return ParseTimestamp(string(r.CreatedAt))
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp shapes the backend emits.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a timestamp as DD.MM.YYYY, or "---" when unusable.
func FormatDate(s string) string {
	t, ok := ParseTimestamp(s)
	if !ok {
		return "---"
	}
	return t.Format("02.01.2006")
}
