package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"garage-backend/internal/apperr"
	"garage-backend/internal/calendar"
	"garage-backend/internal/models"
	"garage-backend/internal/timeutil"
)

// CalendarQuery selects what the calendar page shows.
type CalendarQuery struct {
	Year  int
	Month time.Month
	Day   string // YYYY-MM-DD, selected day for the day view
	View  string // "day" or "list"
	Q     string // list filter
}

// CalendarPage is one full snapshot of the calendar with its derived views.
type CalendarPage struct {
	Events   []*models.Event    `json:"events"`
	Services []*models.Service  `json:"services"`
	Clients  []*models.Client   `json:"clients"`
	Month    calendar.MonthGrid `json:"month"`
	View     string             `json:"view"`
	Day      *calendar.DayView  `json:"day,omitempty"`
	List     []*models.Event    `json:"list,omitempty"`
	Overview calendar.Overview  `json:"overview"`
}

type CalendarService struct {
	events   EventStore
	services ServiceStore
	clients  ClientStore
	now      func() time.Time
}

func NewCalendarService(events EventStore, services ServiceStore, clients ClientStore) *CalendarService {
	return &CalendarService{events: events, services: services, clients: clients, now: timeutil.Now}
}

// Page fetches events, active services and clients in parallel and
// derives every view from that one snapshot.
func (s *CalendarService) Page(ctx context.Context, q CalendarQuery) (*CalendarPage, error) {
	now := s.now()
	if q.Year == 0 {
		q.Year = now.Year()
	}
	if q.Month == 0 {
		q.Month = now.Month()
	}
	if q.Month < time.January || q.Month > time.December {
		return nil, apperr.Invalid("month", "must be 1-12")
	}
	if q.Day == "" {
		q.Day = timeutil.FormatDate(now)
	} else if _, err := timeutil.ParseDate(q.Day); err != nil {
		return nil, apperr.Invalid("day", "expected YYYY-MM-DD")
	}
	if q.View == "" {
		q.View = "day"
	}
	if q.View != "day" && q.View != "list" {
		return nil, apperr.Invalid("view", "must be day or list")
	}

	page := &CalendarPage{View: q.View}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page.Events, err = s.events.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		page.Services, err = s.services.ListActive(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		page.Clients, err = s.clients.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page.Month = calendar.BuildMonthGrid(q.Year, q.Month, page.Events, page.Services, now)
	page.Overview = calendar.BuildOverview(page.Events, now)
	if q.View == "day" {
		day := calendar.BuildDayView(q.Day, page.Events, page.Services)
		page.Day = &day
	} else {
		page.List = calendar.FilterList(page.Events, q.Q)
	}
	return page, nil
}

// DaySheet renders the printable schedule of day.
func (s *CalendarService) DaySheet(ctx context.Context, title, day string) ([]byte, error) {
	if _, err := timeutil.ParseDate(day); err != nil {
		return nil, apperr.Invalid("day", "expected YYYY-MM-DD")
	}
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}
	services, err := s.services.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.DaySheetPDF(title, calendar.BuildDayView(day, events, services))
}
