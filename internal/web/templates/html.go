// Package templates renders the HTML pages of the web UI.
//
// Components are plain templ.Component values so handlers render them the
// same way as generated templ code: component.Render(ctx, w).
package templates

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/a-h/templ"
)

// html writes markup to w and keeps the first write error.
type html struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTML(ctx context.Context, w io.Writer) *html {
	if ctx == nil {
		ctx = context.Background()
	}
	return &html{ctx: ctx, w: w}
}

// raw writes trusted markup.
func (h *html) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// rawf writes trusted markup built from a format. Arguments of any string
// kind, named types included, are escaped.
func (h *html) rawf(format string, args ...any) {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = a
		if v := reflect.ValueOf(a); v.Kind() == reflect.String {
			escaped[i] = templ.EscapeString(v.String())
		}
	}
	h.raw(fmt.Sprintf(format, escaped...))
}

// text writes escaped text.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// component renders a child component in place.
func (h *html) component(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
