package domain

import (
	"strings"
	"time"
)

type Counter string

const (
	CounterAdults   Counter = "adults"
	CounterChildren Counter = "children"
	CounterRooms    Counter = "rooms"
)

const (
	MinAdults   = 1
	MinChildren = 0
	MinRooms    = 1
)

func ParseCounter(s string) (Counter, error) {
	switch c := Counter(strings.ToLower(strings.TrimSpace(s))); c {
	case CounterAdults, CounterChildren, CounterRooms:
		return c, nil
	}
	return "", ErrInvalidInput
}

// TravelerSelection is the adult/child/room/date state of one in-progress flow.
// Counters never drop below their floors whatever sequence of edits is applied.
type TravelerSelection struct {
	Adults   int        `json:"adults"`
	Children int        `json:"children"`
	Rooms    int        `json:"rooms"`
	Date     *time.Time `json:"date"`
}

func NewTravelerSelection() TravelerSelection {
	return TravelerSelection{Adults: MinAdults, Children: MinChildren, Rooms: MinRooms}
}

func (s TravelerSelection) Clamped() TravelerSelection {
	s.Adults = max(s.Adults, MinAdults)
	s.Children = max(s.Children, MinChildren)
	s.Rooms = max(s.Rooms, MinRooms)
	return s
}

func (s *TravelerSelection) Increment(c Counter) error {
	return s.step(c, 1)
}

func (s *TravelerSelection) Decrement(c Counter) error {
	return s.step(c, -1)
}

func (s *TravelerSelection) step(c Counter, delta int) error {
	switch c {
	case CounterAdults:
		s.Adults += delta
	case CounterChildren:
		s.Children += delta
	case CounterRooms:
		s.Rooms += delta
	default:
		return ErrInvalidInput
	}
	*s = s.Clamped()
	return nil
}

// Set replaces the counters with arbitrary input, clamped to the floors.
func (s *TravelerSelection) Set(adults, children, rooms int) {
	s.Adults, s.Children, s.Rooms = adults, children, rooms
	*s = s.Clamped()
}

func (s *TravelerSelection) SetDate(date *time.Time) {
	if date == nil {
		s.Date = nil
		return
	}
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	s.Date = &d
}
