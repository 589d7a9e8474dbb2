package ui

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"
)

// writer emits markup for a component. Static markup goes through raw, every
// dynamic value through text, attr or href. The first write error sticks.
type writer struct {
	out io.Writer
	err error
}

func (w *writer) raw(parts ...string) {
	for _, s := range parts {
		if w.err != nil {
			return
		}
		_, w.err = io.WriteString(w.out, s)
	}
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) attr(name, value string) {
	w.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// href writes a link target, replacing javascript: and similar schemes.
func (w *writer) href(url string) {
	w.attr("href", string(templ.URL(url)))
}

func (w *writer) flag(name string, on bool) {
	if on {
		w.raw(" ", name)
	}
}

func (w *writer) child(ctx context.Context, c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(ctx, w.out)
}

func component(fn func(ctx context.Context, w *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{out: out}
		fn(ctx, w)
		return w.err
	})
}

func itoa(n int) string { return strconv.Itoa(n) }
func utoa(n uint) string { return strconv.FormatUint(uint64(n), 10) }
func i64toa(n int64) string { return strconv.FormatInt(n, 10) }

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

const (
	displayLayout = "2006-01-02 15:04 MST"
	inputLayout   = "2006-01-02T15:04"
)

// FormatTime renders t the way pages show it, in loc. Nil loc means UTC.
func FormatTime(loc *time.Location, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(orUTC(loc)).Format(displayLayout)
}

func formatTimePtr(loc *time.Location, t *time.Time) string {
	if t == nil {
		return "-"
	}
	return FormatTime(loc, *t)
}

// InputTime renders t for a datetime-local input in loc.
func InputTime(loc *time.Location, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(orUTC(loc)).Format(inputLayout)
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
