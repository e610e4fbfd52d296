package domain

import "time"

// BookSnapshot is a point-in-time copy of the resting inventory of one
// symbol. Bids and Asks hold copies in priority order; mutating a snapshot
// never touches book state.
type BookSnapshot struct {
	Symbol    string    `json:"symbol"`
	Bids      []Order   `json:"bids"`
	Asks      []Order   `json:"asks"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *BookSnapshot) DeepCopy() *BookSnapshot {
	cp := *s
	cp.Bids = append([]Order(nil), s.Bids...)
	cp.Asks = append([]Order(nil), s.Asks...)
	return &cp
}
