// Package calendar holds the booking rules and the derived calendar views.
package calendar

import (
	"math"
	"strconv"
	"strings"
	"time"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
	"garage-backend/internal/timeutil"
)

// NormalizeSpan treats a missing or non-positive day count as one day.
func NormalizeSpan(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// ExpandSpan returns the n dates a booking starting on start occupies.
// Sundays are skipped unless they are the first day, so the wall-clock
// span can exceed n days.
func ExpandSpan(start time.Time, n int) []time.Time {
	n = NormalizeSpan(n)
	// Noon keeps date arithmetic clear of DST shifts.
	day := time.Date(start.Year(), start.Month(), start.Day(), 12, 0, 0, 0, start.Location())

	dates := make([]time.Time, 0, n)
	for first := true; len(dates) < n; first = false {
		if !first && day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
			continue
		}
		dates = append(dates, time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()))
		day = day.AddDate(0, 0, 1)
	}
	return dates
}

// ParsePrice converts the digit-only price text. Empty means no price.
// The value must fit the INTEGER price column.
func ParsePrice(text string) (*int, error) {
	price, problem := parsePrice(text)
	if problem != "" {
		return nil, apperr.Invalid("price", problem)
	}
	return price, nil
}

func parsePrice(text string) (*int, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ""
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return nil, "digits only"
		}
	}
	v, err := strconv.Atoi(text)
	if err != nil || v > math.MaxInt32 {
		return nil, "out of range"
	}
	return &v, ""
}

// ValidStartTime reports whether s is a HH:MM clock time.
func ValidStartTime(s string) bool {
	_, err := time.Parse(timeutil.ClockLayout, s)
	return err == nil && len(s) == 5
}

// ClientSnapshot is the client data copied onto every row.
type ClientSnapshot struct {
	Name   string
	Phone  string
	Remark *string
}

// BuildRows materializes one row per occupied day. Every row carries the
// full span as its duration.
func BuildRows(in models.EventInput, client ClientSnapshot, createdBy *string) ([]*models.Event, error) {
	v := &apperr.ValidationError{}
	start, err := timeutil.ParseDate(in.Date)
	if err != nil {
		v.Add("date", "expected YYYY-MM-DD")
	}
	if !ValidStartTime(in.StartTime) {
		v.Add("start_time", "expected HH:MM")
	}
	price, problem := parsePrice(in.Price)
	if problem != "" {
		v.Add("price", problem)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	n := NormalizeSpan(in.Days)
	dates := ExpandSpan(start, n)
	rows := make([]*models.Event, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, &models.Event{
			EventDate:    timeutil.FormatDate(d),
			StartTime:    in.StartTime,
			Duration:     n,
			CarInfo:      in.CarInfo,
			Price:        price,
			Remark:       in.Remark,
			ClientName:   client.Name,
			ClientPhone:  client.Phone,
			ClientRemark: client.Remark,
			Employees:    append([]string{}, in.Employees...),
			Services:     append([]string{}, in.Services...),
			MultiDay:     n > 1,
			CreatedBy:    createdBy,
		})
	}
	return rows, nil
}
