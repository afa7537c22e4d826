/**
 * @description
 * Calendar-month billing period. A period is identified by year+month and
 * spans the first instant of the month through its last instant in the
 * business timezone.
 */
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const periodLayout = "2006-01"

// Period is one calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses a "YYYY-MM" period identifier.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: invalid period %q, want YYYY-MM", ErrValidation, s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MarshalJSON encodes the period as its "YYYY-MM" identifier.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a "YYYY-MM" identifier.
func (p *Period) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Start is the first instant of the period in loc.
func (p Period) Start(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
}

// End is the last instant of the period in loc. Due dates are set to this
// instant.
func (p Period) End(loc *time.Location) time.Time {
	return p.Start(loc).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Days returns the number of calendar days in the period.
func (p Period) Days() int {
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Contains reports whether t falls within the period in loc.
func (p Period) Contains(t time.Time, loc *time.Location) bool {
	local := t.In(loc)
	return local.Year() == p.Year && local.Month() == p.Month
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	start := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return Period{Year: start.Year(), Month: start.Month()}
}
