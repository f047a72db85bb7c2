package timeutil

import (
	"log"
	"sync"
	"time"
)

var (
	mu  sync.RWMutex
	loc = time.UTC
)

// SetLocation sets the business timezone. An unknown name keeps UTC.
func SetLocation(name string) {
	l, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[Time] Unknown timezone %q, using UTC: %v", name, err)
		l = time.UTC
	}
	mu.Lock()
	loc = l
	mu.Unlock()
}

// Location returns the business timezone.
func Location() *time.Location {
	mu.RLock()
	defer mu.RUnlock()
	return loc
}

// Now returns the current time in the business timezone
func Now() time.Time {
	return time.Now().In(Location())
}

// StartOfDay returns midnight of t's calendar day in the business timezone
func StartOfDay(t time.Time) time.Time {
	l := Location()
	lt := t.In(l)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, l)
}

// ParseDate parses a YYYY-MM-DD string as midnight in the business timezone
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, Location())
}

// FormatDate formats t's calendar day
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)
