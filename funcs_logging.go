package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// progress reports analysis progress with elapsed time.
type progress struct {
	w       io.Writer
	start   time.Time
	verbose bool
}

func newProgress(w io.Writer, verbose bool) *progress {
	return &progress{w: w, start: time.Now(), verbose: verbose}
}

// log prints a message with an elapsed time prefix.
func (p *progress) log(format string, args ...any) {
	elapsed := time.Since(p.start)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	fmt.Fprintf(p.w, "[%02d:%02d] %s\n", mins, secs, fmt.Sprintf(format, args...))
}

// detail prints only in verbose mode.
func (p *progress) detail(format string, args ...any) {
	if p.verbose {
		p.log(format, args...)
	}
}
