package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/services"
)

// ParseID reads a positive integer path parameter
func ParseID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(id), nil
}

// ParsePage reads page and limit query parameters
func ParsePage(c *fiber.Ctx) (int, int) {
	return c.QueryInt("page", 1), c.QueryInt("limit", 10)
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// ParseDateRange reads start_date and end_date. Missing bounds stay zero so
// services can apply their own defaults. A date-only end_date includes that day.
func ParseDateRange(c *fiber.Ctx) (services.DateRange, error) {
	var r services.DateRange

	if raw := c.Query("start_date"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return r, err
		}
		r.From = t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return r, err
		}
		if len(raw) == len("2006-01-02") {
			t = t.AddDate(0, 0, 1)
		}
		r.To = t
	}

	if !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To) {
		return r, fmt.Errorf("start_date must be before end_date")
	}
	return r, nil
}
