package database

// Submission is one journaled analysis request and its outcome.
type Submission struct {
	ID            int64
	RequestID     string
	ProjectID     string
	Source        string // "raw", "csv", "feed" or "page"
	Origin        *string
	DateFrom      *string
	DateTo        *string
	OpinionsCount int
	AvgSentiment  float64
	PositiveCount int
	NeutralCount  int
	NegativeCount int
	Error         *string
	SubmittedAt   *string
}

// Stats contains aggregate journal statistics.
type Stats struct {
	Submissions int
	Failed      int
	Opinions    int
	Projects    int
}
