/*
Package tablemap – date and date-time formatting.

Storage date fields take a calendar date ("2006-01-02"); date-time fields take
a UTC ISO-8601 timestamp. Wall-clock input without a zone is read in the
Converter's location (US Eastern by default) and normalized to UTC.
*/
package tablemap

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// DateFormatter produces the canonical storage representation of date and
// date-time values. Inputs are strings, time.Time or *time.Time.
type DateFormatter interface {
	Date(v any) (string, error)
	DateTime(v any) (string, error)
}

// DateStyle selects an output rendering for Converter.Render.
type DateStyle int

const (
	StyleCalendarDate DateStyle = iota // 2006-01-02
	StyleISO                           // 2006-01-02T15:04:05.000Z
	StyleLocale                        // 1/2/2006, 3:04:05 PM in the converter location
	StyleUTC                           // Mon, 02 Jan 2006 15:04:05 GMT
)

const (
	isoDateLayout     = "2006-01-02"
	isoDateTimeLayout = "2006-01-02T15:04:05.000Z07:00"
	localeLayout      = "1/2/2006, 3:04:05 PM"
	utcLayout         = "Mon, 02 Jan 2006 15:04:05 GMT"
	calendarLayout    = "01-02-2006"
)

// DefaultTimeZone is the location used to read zone-less wall-clock input.
const DefaultTimeZone = "America/New_York"

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04 pm",
	"3:04pm",
	"3:04:05 PM",
}

// zoned layouts carry their own offset and are never read in the local zone
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
}

var wallClockLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04",
	"01/02/2006 3:04 PM",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"2006-01-02 3:04 PM",
}

// Converter is the default DateFormatter.
type Converter struct {
	Location *time.Location
	// Now supplies the value used for empty input.
	Now func() time.Time
}

// NewConverter returns a Converter reading wall-clock input in tz. An empty
// tz selects DefaultTimeZone.
func NewConverter(tz string) (*Converter, error) {
	if tz == "" {
		tz = DefaultTimeZone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, NewError(fmt.Sprintf("Unknown time zone %s", tz), WithCode(ErrConfig), WithCause(err))
	}
	return &Converter{Location: loc, Now: time.Now}, nil
}

func (c *Converter) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c *Converter) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// parseDate reads a calendar date. Timestamps are accepted and reduced to
// their date in the converter location.
func (c *Converter) parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return c.now().In(c.loc()), nil
	case time.Time:
		return d.In(c.loc()), nil
	case *time.Time:
		if d == nil {
			return time.Time{}, fmt.Errorf("invalid date <nil>")
		}
		return d.In(c.loc()), nil
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return c.now().In(c.loc()), nil
		}
		for _, l := range dateLayouts {
			if t, err := time.ParseInLocation(l, s, c.loc()); err == nil {
				return t, nil
			}
		}
		if t, err := c.parseDateTime(s); err == nil {
			return t.In(c.loc()), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %v", v)
}

func parseClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range clockLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %s", s)
}

// parseDateTime reads a full timestamp, zone-less input in the converter
// location.
func (c *Converter) parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range zonedLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	for _, l := range wallClockLayouts {
		if t, err := time.ParseInLocation(l, s, c.loc()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date time %s", s)
}

// FormatDate renders v as a calendar date, month first: 03-05-2024.
func (c *Converter) FormatDate(v any) (string, error) {
	t, err := c.parseDate(v)
	if err != nil {
		return "", err
	}
	return t.Format(calendarLayout), nil
}

// FormatTime renders the time of day of v, either 24h (military) or 12h
// with an AM/PM suffix.
func (c *Converter) FormatTime(v any, military bool) (string, error) {
	var t time.Time
	switch d := v.(type) {
	case nil:
		t = c.now().In(c.loc())
	case time.Time:
		t = d.In(c.loc())
	case string:
		if strings.TrimSpace(d) == "" {
			t = c.now().In(c.loc())
			break
		}
		var err error
		if t, err = parseClock(d); err != nil {
			full, ferr := c.parseDateTime(d)
			if ferr != nil {
				return "", err
			}
			t = full.In(c.loc())
		}
	default:
		return "", fmt.Errorf("invalid time %v", v)
	}
	if military {
		return t.Format("15:04"), nil
	}
	return t.Format("3:04 PM"), nil
}

// Date renders v as an ISO calendar date. Instants are reduced to their
// calendar date in the converter location, so UTC midnight of the 5th is
// the 4th in New York.
func (c *Converter) Date(v any) (string, error) {
	t, err := c.parseDate(v)
	if err != nil {
		return "", err
	}
	return t.Format(isoDateLayout), nil
}

// DateTime renders v as a UTC ISO-8601 timestamp. Strings may be a full
// timestamp or a "<date> <time>" pair typed by a user.
func (c *Converter) DateTime(v any) (string, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC().Format(isoDateTimeLayout), nil
	case *time.Time:
		if d == nil {
			return "", fmt.Errorf("invalid date time <nil>")
		}
		return d.UTC().Format(isoDateTimeLayout), nil
	case string:
		s := strings.TrimSpace(d)
		if t, err := c.parseDateTime(s); err == nil {
			return t.UTC().Format(isoDateTimeLayout), nil
		}
		// a bare date is midnight local time
		if _, err := c.parseDate(s); err == nil {
			return c.ISODateTime(s, "00:00")
		}
		// the clock is the trailing one or two words: "March 5, 2024 2:30 PM"
		for i := strings.LastIndex(s, " "); i > 0; i = strings.LastIndex(s[:i], " ") {
			if _, err := parseClock(s[i+1:]); err == nil {
				return c.ISODateTime(s[:i], s[i+1:])
			}
		}
		return "", fmt.Errorf("invalid date time %s", d)
	}
	return c.ISODateTime(v, nil)
}

// ISODateTime combines the calendar date of date with the time of day of
// clock, both read in the converter location, and renders the UTC instant.
func (c *Converter) ISODateTime(date, clock any) (string, error) {
	day, err := c.parseDate(date)
	if err != nil {
		return "", err
	}
	var tod time.Time
	switch cl := clock.(type) {
	case nil:
		tod = c.now().In(c.loc())
	case time.Time:
		tod = cl.In(c.loc())
	case string:
		if tod, err = parseClock(cl); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("invalid time %v", clock)
	}
	t := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, c.loc())
	return t.UTC().Format(isoDateTimeLayout), nil
}

// Render formats v in the given style.
func (c *Converter) Render(v any, style DateStyle) (string, error) {
	var (
		t   time.Time
		err error
	)
	if s, ok := v.(string); ok {
		if t, err = c.parseDateTime(s); err != nil {
			t, err = c.parseDate(s)
		}
	} else {
		t, err = c.parseDate(v)
	}
	if err != nil {
		return "", err
	}
	switch style {
	case StyleCalendarDate:
		return t.In(c.loc()).Format(isoDateLayout), nil
	case StyleISO:
		return t.UTC().Format(isoDateTimeLayout), nil
	case StyleLocale:
		return t.In(c.loc()).Format(localeLayout), nil
	case StyleUTC:
		return t.UTC().Format(utcLayout), nil
	}
	return "", fmt.Errorf("unknown date style %d", style)
}
