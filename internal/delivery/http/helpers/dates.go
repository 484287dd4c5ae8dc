package helpers

import (
	"encoding/json"
	"time"

	"congresy/internal/domain"
)

// Moment is a request field holding a "dd/MM/yyyy HH:mm" date and time.
type Moment struct {
	time.Time
}

func (m *Moment) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := domain.ParseMoment(s)
	if err != nil {
		return err
	}
	m.Time = t
	return nil
}

func (m Moment) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Format(domain.MomentLayout))
}

// Day is a request field holding a "dd/MM/yyyy" date.
type Day struct {
	time.Time
}

func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := domain.ParseDay(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(domain.DayLayout))
}

// MomentPtr unwraps an optional Moment.
func MomentPtr(m *Moment) *time.Time {
	if m == nil {
		return nil
	}
	return &m.Time
}

// DayPtr unwraps an optional Day.
func DayPtr(d *Day) *time.Time {
	if d == nil {
		return nil
	}
	return &d.Time
}
