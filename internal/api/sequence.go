package api

import "strconv"

// Sequence hands out opinion ids "1", "2", ... Ids are never reused.
type Sequence struct {
	last int
}

// ResumeSequence continues numbering after last.
func ResumeSequence(last int) *Sequence {
	if last < 0 {
		last = 0
	}
	return &Sequence{last: last}
}

// Next returns the next id.
func (s *Sequence) Next() string {
	s.last++
	return strconv.Itoa(s.last)
}

// Last returns the most recently issued id number, 0 before the first.
func (s *Sequence) Last() int { return s.last }
