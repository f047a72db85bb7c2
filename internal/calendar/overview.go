package calendar

import (
	"sort"
	"time"

	"garage-backend/internal/models"
	"garage-backend/internal/timeutil"
)

const lookaheadDays = 30

type DayLoad struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Overview summarises the workload around now.
type Overview struct {
	Today         int       `json:"today"`
	ThisWeek      int       `json:"this_week"`
	InProgress    int       `json:"in_progress"`
	LeastBusyDays []DayLoad `json:"least_busy_days"`
}

// BuildOverview counts today's rows, this week's rows (week starting on
// Sunday), rows of today whose start time has passed while the shop is
// still open, and the three emptiest days of the next 30.
func BuildOverview(events []*models.Event, now time.Time) Overview {
	now = now.In(timeutil.Location())
	today := timeutil.StartOfDay(now)
	todayKey := timeutil.FormatDate(today)
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	weekEnd := weekStart.AddDate(0, 0, 7)
	nowMinutes := now.Hour()*60 + now.Minute()

	counts := make(map[string]int)
	var ov Overview
	for _, e := range events {
		counts[e.EventDate]++
		d, err := timeutil.ParseDate(e.EventDate)
		if err != nil {
			continue
		}
		if e.EventDate == todayKey {
			ov.Today++
			if start, ok := clockMinutes(e.StartTime); ok && start <= nowMinutes && nowMinutes < closingMinutes {
				ov.InProgress++
			}
		}
		if !d.Before(weekStart) && d.Before(weekEnd) {
			ov.ThisWeek++
		}
	}

	loads := make([]DayLoad, 0, lookaheadDays)
	for i := 0; i < lookaheadDays; i++ {
		key := timeutil.FormatDate(today.AddDate(0, 0, i))
		loads = append(loads, DayLoad{Date: key, Count: counts[key]})
	}
	sort.SliceStable(loads, func(i, j int) bool { return loads[i].Count < loads[j].Count })
	ov.LeastBusyDays = loads[:3]
	return ov
}

func clockMinutes(s string) (int, bool) {
	t, err := time.Parse(timeutil.ClockLayout, s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
