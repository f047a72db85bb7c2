package calendar

import (
	"fmt"
	"strings"
	"time"

	"garage-backend/internal/models"
	"garage-backend/internal/timeutil"
)

// Dot colors that do not come from the catalog.
const (
	ColorNoService      = "#3f3f46"
	ColorUnknownService = "#ef4444"
)

// Day view slot range: half-hour slots from 09:00 up to, not including, 19:00.
const (
	firstSlotMinutes = 9 * 60
	closingMinutes   = 19 * 60
	slotMinutes      = 30
)

// EventColor colors an event by its first service. services is the set
// the booking form offers, so an inactive or unknown name gets the
// fallback color.
func EventColor(e *models.Event, services []*models.Service) string {
	if len(e.Services) == 0 || e.Services[0] == "" {
		return ColorNoService
	}
	for _, s := range services {
		if s.Name == e.Services[0] && s.Color != "" {
			return s.Color
		}
	}
	return ColorUnknownService
}

// Dot marks one event in a month cell.
type Dot struct {
	EventID string `json:"event_id"`
	Color   string `json:"color"`
}

type MonthCell struct {
	Date  string `json:"date"`
	Day   int    `json:"day"`
	Today bool   `json:"today,omitempty"`
	Dots  []Dot  `json:"dots"`
}

// MonthGrid is a Monday-first month layout.
type MonthGrid struct {
	Year          int         `json:"year"`
	Month         int         `json:"month"`
	LeadingBlanks int         `json:"leading_blanks"`
	Cells         []MonthCell `json:"cells"`
}

// MondayOffset is the number of empty cells before the 1st in a week
// that starts on Monday.
func MondayOffset(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// BuildMonthGrid lays out the given month with one dot per event.
func BuildMonthGrid(year int, month time.Month, events []*models.Event, services []*models.Service, today time.Time) MonthGrid {
	loc := timeutil.Location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	byDate := groupByDate(events)
	todayKey := timeutil.FormatDate(today.In(loc))

	grid := MonthGrid{
		Year:          year,
		Month:         int(month),
		LeadingBlanks: MondayOffset(first.Weekday()),
		Cells:         make([]MonthCell, 0, daysInMonth),
	}
	for d := 1; d <= daysInMonth; d++ {
		key := fmt.Sprintf("%04d-%02d-%02d", year, int(month), d)
		cell := MonthCell{Date: key, Day: d, Today: key == todayKey, Dots: []Dot{}}
		for _, e := range byDate[key] {
			cell.Dots = append(cell.Dots, Dot{EventID: e.ID, Color: EventColor(e, services)})
		}
		grid.Cells = append(grid.Cells, cell)
	}
	return grid
}

// DaySlots returns the HH:MM slot labels of the day view.
func DaySlots() []string {
	slots := make([]string, 0, (closingMinutes-firstSlotMinutes)/slotMinutes)
	for m := firstSlotMinutes; m < closingMinutes; m += slotMinutes {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// SlotEvent is an event placed in the day view.
type SlotEvent struct {
	*models.Event
	Color string `json:"color"`
}

type DaySlot struct {
	Time   string      `json:"time"`
	Events []SlotEvent `json:"events"`
}

type DayView struct {
	Date  string    `json:"date"`
	Slots []DaySlot `json:"slots"`
}

// BuildDayView places the events of date into the slot matching their
// start time exactly. Events starting off-slot are not shown.
func BuildDayView(date string, events []*models.Event, services []*models.Service) DayView {
	byDate := groupByDate(events)
	view := DayView{Date: date}
	for _, slot := range DaySlots() {
		ds := DaySlot{Time: slot, Events: []SlotEvent{}}
		for _, e := range byDate[date] {
			if e.StartTime == slot {
				ds.Events = append(ds.Events, SlotEvent{Event: e, Color: EventColor(e, services)})
			}
		}
		view.Slots = append(view.Slots, ds)
	}
	return view
}

// FilterList keeps events whose client name or phone contains term,
// case-insensitively. The selected day plays no part.
func FilterList(events []*models.Event, term string) []*models.Event {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]*models.Event, 0, len(events))
	for _, e := range events {
		if term == "" ||
			strings.Contains(strings.ToLower(e.ClientName), term) ||
			strings.Contains(strings.ToLower(e.ClientPhone), term) {
			out = append(out, e)
		}
	}
	return out
}

func groupByDate(events []*models.Event) map[string][]*models.Event {
	m := make(map[string][]*models.Event)
	for _, e := range events {
		m[e.EventDate] = append(m[e.EventDate], e)
	}
	return m
}
