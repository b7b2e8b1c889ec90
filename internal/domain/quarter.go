package domain

import "time"

// QuarterOf returns the calendar quarter (1-4) and year of t.
func QuarterOf(t time.Time) (quarter, year int) {
	return (int(t.Month())-1)/3 + 1, t.Year()
}

func ValidQuarter(q int) bool { return q >= 1 && q <= 4 }
