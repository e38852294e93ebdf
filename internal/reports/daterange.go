/* Copyright (c) 2025 B Board
 * SPDX-License-Identifier: BSD-3-Clause */

// Package reports holds the pure aggregation and scoring functions behind
// the report endpoints. Everything here operates on in-memory slices the
// repo layer extracted; nothing touches the store or keeps state.
package reports

import (
	"errors"
	"fmt"
	"time"
)

// ErrBadDate marks an unparseable from/to query parameter.
var ErrBadDate = errors.New("invalid date")

const dateLayout = "2006-01-02"

// Range is a UTC [From, To] report window. From is start-of-day, To is
// end-of-day (23:59:59.999999999).
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) Days() int { return int(r.To.Sub(r.From).Hours()/24) + 1 }

// ResolveRange normalizes date-only from/to parameters to UTC day
// boundaries. Absent parameters default to a trailing window of
// defaultDays ending today. An inverted range (to < from) falls back to
// the default window rather than erroring; that leniency is deliberate
// and tested. Unparseable input is an error.
func ResolveRange(fromStr, toStr string, defaultDays int, now time.Time) (Range, error) {
	def := defaultRange(defaultDays, now)
	if fromStr == "" && toStr == "" {
		return def, nil
	}
	from, to := def.From, def.To
	if fromStr != "" {
		t, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			return Range{}, fmt.Errorf("%w: from=%q", ErrBadDate, fromStr)
		}
		from = startOfDay(t)
	}
	if toStr != "" {
		t, err := time.Parse(dateLayout, toStr)
		if err != nil {
			return Range{}, fmt.Errorf("%w: to=%q", ErrBadDate, toStr)
		}
		to = endOfDay(t)
	}
	if to.Before(from) {
		return def, nil
	}
	return Range{From: from, To: to}, nil
}

func defaultRange(days int, now time.Time) Range {
	if days <= 0 {
		days = 30
	}
	to := endOfDay(now.UTC())
	from := startOfDay(now.UTC().AddDate(0, 0, -(days - 1)))
	return Range{From: from, To: to}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
