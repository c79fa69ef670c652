package models

import (
	"encoding/json"
	"fmt"
)

// PeriodKind is the grammatical form a time expression was parsed from.
type PeriodKind string

const (
	PeriodFiscalYear   PeriodKind = "fiscal_year"
	PeriodCalendarYear PeriodKind = "calendar_year"
	PeriodQuarter      PeriodKind = "quarter"
	PeriodRange        PeriodKind = "range"
	PeriodRelative     PeriodKind = "relative"
)

// Period is a canonical year or year+quarter. Quarter is 0 for whole years.
type Period struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter,omitempty"`
}

// YearPeriod returns a whole-year period.
func YearPeriod(year int) Period {
	return Period{Year: year}
}

// QuarterPeriod returns a year+quarter period.
func QuarterPeriod(year, quarter int) Period {
	return Period{Year: year, Quarter: quarter}
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Quarter == 0
}

// Compare orders periods by year, then quarter. A whole year sorts before
// its quarters.
func (p Period) Compare(o Period) int {
	switch {
	case p.Year < o.Year:
		return -1
	case p.Year > o.Year:
		return 1
	case p.Quarter < o.Quarter:
		return -1
	case p.Quarter > o.Quarter:
		return 1
	}
	return 0
}

// AddQuarters shifts a quarter period by n quarters (n may be negative).
func (p Period) AddQuarters(n int) Period {
	idx := p.Year*4 + (p.Quarter - 1) + n
	return Period{Year: idx / 4, Quarter: idx%4 + 1}
}

// String renders "2024" or "2022-Q3".
func (p Period) String() string {
	if p.Quarter == 0 {
		return fmt.Sprintf("%d", p.Year)
	}
	return fmt.Sprintf("%d-Q%d", p.Year, p.Quarter)
}

// MarshalJSON writes whole years as a bare integer and quarters as an object.
func (p Period) MarshalJSON() ([]byte, error) {
	if p.Quarter == 0 {
		return json.Marshal(p.Year)
	}
	type plain Period
	return json.Marshal(plain(p))
}

// UnmarshalJSON accepts both forms written by MarshalJSON.
func (p *Period) UnmarshalJSON(data []byte) error {
	var year int
	if err := json.Unmarshal(data, &year); err == nil {
		*p = Period{Year: year}
		return nil
	}
	type plain Period
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid period %s: %w", string(data), err)
	}
	*p = Period(v)
	return nil
}

// PeriodAnchor is the caller's notion of "now" used for relative windows.
// It is typically the latest completed period in the caller's fiscal convention.
type PeriodAnchor struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter,omitempty"`
}

// IsZero reports whether no anchor was supplied.
func (a PeriodAnchor) IsZero() bool {
	return a.Year == 0
}

// TimeExpression is a parsed period phrase with normalized boundaries.
// StartPeriod never sorts after EndPeriod.
type TimeExpression struct {
	Kind              PeriodKind `json:"kind"`
	StartPeriod       Period     `json:"start_period"`
	EndPeriod         Period     `json:"end_period"`
	NormalizeToFiscal bool       `json:"normalize_to_fiscal"`
	Raw               string     `json:"-"`
}
