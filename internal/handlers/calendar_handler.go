package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
	"garage-backend/internal/services"
	"garage-backend/internal/timeutil"
	"garage-backend/pkg/utils"
)

type CalendarHandler struct {
	Calendar *services.CalendarService
	Bookings *services.BookingService
	Title    string
}

func NewCalendarHandler(calendar *services.CalendarService, bookings *services.BookingService, title string) *CalendarHandler {
	return &CalendarHandler{Calendar: calendar, Bookings: bookings, Title: title}
}

// GetCalendar returns one snapshot with the month grid, the selected
// day or the list, and the overview.
func (h *CalendarHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := services.CalendarQuery{
		Day:  q.Get("day"),
		View: q.Get("view"),
		Q:    q.Get("q"),
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, r, apperr.Invalid("year", "must be a number"))
			return
		}
		query.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, r, apperr.Invalid("month", "must be a number"))
			return
		}
		query.Month = time.Month(month)
	}

	page, err := h.Calendar.Page(r.Context(), query)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, page)
}

// GetDaySheet renders the printable schedule of ?day= (default today).
func (h *CalendarHandler) GetDaySheet(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		day = timeutil.FormatDate(timeutil.Now())
	}
	pdf, err := h.Calendar.DaySheet(r.Context(), h.Title, day)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="programari_%s.pdf"`, day))
	w.Write(pdf)
}

func (h *CalendarHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Bookings.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, events)
}

func (h *CalendarHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.Bookings.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, event)
}

// CreateEvent stores one row per occupied day and returns all of them.
func (h *CalendarHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventInput
	if !decodeJSON(w, r, &req) {
		return
	}
	rows, err := h.Bookings.Create(r.Context(), actorFrom(r), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, rows)
}

// UpdateEvent rewrites the addressed row only.
func (h *CalendarHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventInput
	if !decodeJSON(w, r, &req) {
		return
	}
	event, err := h.Bookings.Update(r.Context(), actorFrom(r), mux.Vars(r)["id"], req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, event)
}

func (h *CalendarHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.Bookings.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
