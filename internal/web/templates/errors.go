package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<div class="alert" role="alert">`)
		h.rawf(`<strong>%s</strong>`, message)
		if action != "" {
			h.rawf(`<div>%s</div>`, action)
		}
		if code != "" {
			h.rawf(`<div class="muted">Code: <span class="code">%s</span></div>`, code)
		}
		h.raw(`</div>`)
		return h.err
	})
}

// ErrorPage renders a full page around ErrorAlert.
func ErrorPage(message, action, code string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<section>`)
		h.component(ErrorAlert(message, action, code))
		h.raw(`<a href="/">Back to upload</a></section>`)
		return h.err
	})
	return Layout("Error", body)
}
