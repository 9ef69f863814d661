// Package core provides the application logic for cleaning contact files.
//
// It sits between the transports (the CLI and the web server) and the
// cleaning packages. It reads the input, runs the pipeline, keeps finished
// results for download and records every run in history. It can be used by
// web handlers, CLI commands, or tests without modification.
//
// # Running a clean
//
//	svc, err := core.NewService(store, cfg)
//	res, err := svc.Clean(ctx, core.CleanRequest{
//	    FileName: "contactos.csv",
//	    Source:   core.SourceCLI,
//	    Input:    f,
//	})
//
// Each run gets a UUID that is attached to its log lines. Runs are bounded
// by a [RunLimiter] and by the configured run timeout. Results stay
// downloadable through [Service.Result] until the retention expires; the
// janitor started with [Service.StartJanitor] drops them and prunes history.
//
// # Output directory locking
//
// The CLI writes kept.csv and removed.csv into a directory. [LockDir] takes
// an advisory file lock on that directory so two concurrent invocations do
// not interleave their writes.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE006: File errors (size, format, encoding, empty, form)
//   - VAL001-VAL004: Validation errors (missing EMAIL, bad patterns, rules)
//   - RUN001-RUN005: Run errors (busy, not found, cancelled, timeout, locked)
//   - RATE001: Rate limiting
//   - ERR000: Unknown error (fallback)
package core
