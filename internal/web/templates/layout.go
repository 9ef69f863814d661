package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const styles = `
body { font-family: system-ui, sans-serif; margin: 0; background: #f5f6f8; color: #1f2933; }
header { background: #1f2933; color: #fff; padding: 0.8rem 1.5rem; }
header a { color: #fff; text-decoration: none; font-weight: 600; }
main { max-width: 960px; margin: 1.5rem auto; padding: 0 1rem; }
section { background: #fff; border-radius: 6px; padding: 1rem 1.5rem; margin-bottom: 1.2rem; box-shadow: 0 1px 2px rgba(0,0,0,.08); }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.35rem 0.5rem; border-bottom: 1px solid #e4e7eb; }
td.num, th.num { text-align: right; font-variant-numeric: tabular-nums; }
.alert { border-left: 4px solid #d64545; background: #fde8e8; padding: 0.6rem 1rem; margin-bottom: 1rem; }
.alert .code { color: #8a1c1c; font-family: monospace; }
.muted { color: #7b8794; }
.failed { color: #d64545; }
.skipped { color: #7b8794; font-style: italic; }
`

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.rawf(`<title>%s - emailclean</title>`, title)
		h.raw(`<style>` + styles + `</style></head><body>`)
		h.raw(`<header><a href="/">emailclean</a></header><main>`)
		h.component(body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}
