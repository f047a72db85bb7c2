package calendar

import (
	"errors"
	"testing"
	"time"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
	"garage-backend/internal/timeutil"
)

func dates(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = timeutil.FormatDate(t)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExpandSpanScenarios(t *testing.T) {
	timeutil.SetLocation("UTC")
	cases := []struct {
		name  string
		start string
		n     int
		want  []string
	}{
		{"saturday three days skips sunday", "2024-03-09", 3, []string{"2024-03-09", "2024-03-11", "2024-03-12"}},
		{"sunday start is kept", "2024-03-10", 2, []string{"2024-03-10", "2024-03-11"}},
		{"zero means one day", "2024-03-13", 0, []string{"2024-03-13"}},
		{"negative means one day", "2024-03-13", -4, []string{"2024-03-13"}},
		{"two weeks crosses two sundays", "2024-03-08", 8, []string{
			"2024-03-08", "2024-03-09", "2024-03-11", "2024-03-12",
			"2024-03-13", "2024-03-14", "2024-03-15", "2024-03-16",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, err := timeutil.ParseDate(tc.start)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := dates(ExpandSpan(start, tc.n)); !equal(got, tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestExpandSpanProperties(t *testing.T) {
	timeutil.SetLocation("Europe/Bucharest")
	defer timeutil.SetLocation("UTC")

	base, _ := timeutil.ParseDate("2024-03-01")
	for offset := 0; offset < 14; offset++ {
		start := base.AddDate(0, 0, offset)
		for n := 1; n <= 12; n++ {
			got := ExpandSpan(start, n)
			if len(got) != n {
				t.Fatalf("start %s n=%d: got %d dates", timeutil.FormatDate(start), n, len(got))
			}
			if timeutil.FormatDate(got[0]) != timeutil.FormatDate(start) {
				t.Fatalf("first date must be the start date")
			}
			for i, d := range got {
				if i > 0 && d.Weekday() == time.Sunday {
					t.Fatalf("start %s n=%d: row %d falls on Sunday", timeutil.FormatDate(start), n, i)
				}
				if i > 0 && !d.After(got[i-1]) {
					t.Fatalf("dates must be strictly increasing")
				}
			}
		}
	}
}

func TestBuildRows(t *testing.T) {
	timeutil.SetLocation("UTC")
	creator := "profile-1"
	remark := "regular"
	in := models.EventInput{
		Date:      "2024-03-09",
		StartTime: "09:30",
		Days:      3,
		CarInfo:   "Dacia Logan B-12-ABC",
		Price:     "450",
		Services:  []string{"Revizie"},
		Employees: []string{"Mihai"},
	}
	rows, err := BuildRows(in, ClientSnapshot{Name: "Ion Pop", Phone: "0711111111", Remark: &remark}, &creator)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	wantDates := []string{"2024-03-09", "2024-03-11", "2024-03-12"}
	for i, r := range rows {
		if r.EventDate != wantDates[i] {
			t.Fatalf("row %d date %s want %s", i, r.EventDate, wantDates[i])
		}
		if r.Duration != 3 || !r.MultiDay {
			t.Fatalf("row %d must carry duration 3 and multi_day, got %d %v", i, r.Duration, r.MultiDay)
		}
		if r.Price == nil || *r.Price != 450 {
			t.Fatalf("row %d price not parsed", i)
		}
		if r.ClientName != "Ion Pop" || r.CreatedBy == nil || *r.CreatedBy != creator {
			t.Fatalf("row %d snapshot/creator missing", i)
		}
	}
	rows[0].Services[0] = "changed"
	if rows[1].Services[0] != "Revizie" {
		t.Fatalf("rows must not share slices")
	}
}

func TestBuildRowsSingleDay(t *testing.T) {
	timeutil.SetLocation("UTC")
	rows, err := BuildRows(models.EventInput{Date: "2024-03-13", StartTime: "10:00"}, ClientSnapshot{}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(rows) != 1 || rows[0].Duration != 1 || rows[0].MultiDay || rows[0].Price != nil {
		t.Fatalf("unexpected single-day row %+v", rows[0])
	}
}

func TestBuildRowsValidation(t *testing.T) {
	_, err := BuildRows(models.EventInput{Date: "09/03/2024", StartTime: "9am", Price: "12a"}, ClientSnapshot{}, nil)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, f := range []string{"date", "start_time", "price"} {
		if _, ok := ve.FieldErrors[f]; !ok {
			t.Fatalf("missing field error for %s", f)
		}
	}
}

func TestParsePrice(t *testing.T) {
	if p, err := ParsePrice(""); err != nil || p != nil {
		t.Fatalf("empty price must be nil")
	}
	if p, err := ParsePrice(" 0120 "); err != nil || *p != 120 {
		t.Fatalf("expected 120, got %v %v", p, err)
	}
	for _, bad := range []string{"-5", "12.5", "1e3", "abc"} {
		if _, err := ParsePrice(bad); err == nil {
			t.Fatalf("%q should be rejected", bad)
		}
	}
	if p, err := ParsePrice("2147483647"); err != nil || *p != 2147483647 {
		t.Fatalf("largest INTEGER price must pass, got %v %v", p, err)
	}
}

func TestPriceOutOfRange(t *testing.T) {
	for _, big := range []string{"3000000000", "99999999999999999999999"} {
		_, err := ParsePrice(big)
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) || ve.FieldErrors["price"] != "out of range" {
			t.Fatalf("%s: expected out of range, got %v", big, err)
		}
	}

	_, err := BuildRows(models.EventInput{Date: "2024-03-04", StartTime: "09:00", Price: "3000000000"}, ClientSnapshot{}, nil)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || ve.FieldErrors["price"] != "out of range" {
		t.Fatalf("BuildRows must keep the price problem, got %v", err)
	}
}
