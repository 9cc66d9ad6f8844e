package database

import "database/sql"

// InsertSubmission journals a submission and returns its row ID.
func (db *DB) InsertSubmission(s *Submission) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO submissions (request_id, project_id, source, origin, date_from, date_to,
			opinions_count, avg_sentiment, positive_count, neutral_count, negative_count, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.RequestID, s.ProjectID, s.Source, s.Origin, s.DateFrom, s.DateTo,
		s.OpinionsCount, s.AvgSentiment, s.PositiveCount, s.NeutralCount, s.NegativeCount, s.Error,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetRecentSubmissions returns the latest submissions, newest first.
// An empty projectID returns submissions for every project.
func (db *DB) GetRecentSubmissions(projectID string, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, request_id, project_id, source, origin, date_from, date_to,
		opinions_count, avg_sentiment, positive_count, neutral_count, negative_count, error, submitted_at
		FROM submissions`
	var args []any
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

// GetStats returns aggregate statistics over the journal.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	err := db.conn.QueryRow(
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN error IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(opinions_count), 0),
			COUNT(DISTINCT project_id)
		FROM submissions`,
	).Scan(&s.Submissions, &s.Failed, &s.Opinions, &s.Projects)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanSubmissions(rows *sql.Rows) ([]Submission, error) {
	var out []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.RequestID, &s.ProjectID, &s.Source, &s.Origin, &s.DateFrom, &s.DateTo,
			&s.OpinionsCount, &s.AvgSentiment, &s.PositiveCount, &s.NeutralCount, &s.NegativeCount,
			&s.Error, &s.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
