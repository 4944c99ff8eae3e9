// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package log implements leveled, verbosity-gated logging. Messages are
// formatted with redaction markers around unsafe arguments and are prefixed
// with the log tags carried by the context.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/ash/pkg/util/syncutil"
	"github.com/cockroachdb/ash/pkg/util/timeutil"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
	"github.com/petermattis/goid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var logging struct {
	// verbosity is the V level below or at which VEventf messages are
	// written to the output.
	verbosity atomic.Int32
	// redactable controls whether redaction markers are kept on output.
	redactable atomic.Bool

	mu struct {
		syncutil.Mutex
		out   io.Writer
		color *colorProfile
		// exitOverride, when set, replaces os.Exit after a FATAL message.
		exitOverride func(int)
	}
}

func init() {
	logging.mu.out = os.Stderr
	logging.mu.color = stderrColorProfile()
}

// SetVerbosity sets the global verbosity level and returns the previous one.
func SetVerbosity(level int32) int32 {
	return logging.verbosity.Swap(level)
}

// V returns true if the logging verbosity is set to the specified level or
// higher.
func V(level int32) bool {
	return logging.verbosity.Load() >= level
}

// SetRedactableOutput controls whether redaction markers are preserved in
// the output. It returns the previous setting.
func SetRedactableOutput(enabled bool) bool {
	return logging.redactable.Swap(enabled)
}

// SetOutput redirects log output to w. Color is disabled for anything other
// than stderr.
func SetOutput(w io.Writer) {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	logging.mu.out = w
	if f, ok := w.(*os.File); ok && f == os.Stderr {
		logging.mu.color = stderrColorProfile()
	} else {
		logging.mu.color = nil
	}
}

// TestingSetOutput redirects log output to w and returns a function that
// restores the previous output.
func TestingSetOutput(w io.Writer) func() {
	logging.mu.Lock()
	prevOut, prevColor := logging.mu.out, logging.mu.color
	logging.mu.out, logging.mu.color = w, nil
	logging.mu.Unlock()
	return func() {
		logging.mu.Lock()
		defer logging.mu.Unlock()
		logging.mu.out, logging.mu.color = prevOut, prevColor
	}
}

// Infof logs to the INFO severity.
func Infof(ctx context.Context, format string, args ...interface{}) {
	logfDepth(ctx, 1, Severity_INFO, format, args...)
}

// Warningf logs to the WARNING severity.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	logfDepth(ctx, 1, Severity_WARNING, format, args...)
}

// Errorf logs to the ERROR severity.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logfDepth(ctx, 1, Severity_ERROR, format, args...)
}

// Fatalf logs to the FATAL severity and then terminates the process.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	logfDepth(ctx, 1, Severity_FATAL, format, args...)
	exit(255)
}

// InfofDepth logs to the INFO severity, attributing the message to the
// caller depth frames above the direct caller.
func InfofDepth(ctx context.Context, depth int, format string, args ...interface{}) {
	logfDepth(ctx, depth+1, Severity_INFO, format, args...)
}

// VInfof logs to the INFO severity if the verbosity is at least level.
func VInfof(ctx context.Context, level int32, format string, args ...interface{}) {
	if V(level) {
		logfDepth(ctx, 1, Severity_INFO, format, args...)
	}
}

// VEventf either logs a message to the tracing span carried by ctx (if it
// is recording), to the log output (if the verbosity is at least level), or
// to both.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	vEventfDepth(ctx, 1, level, format, args...)
}

func vEventfDepth(
	ctx context.Context, depth int, level int32, format string, args ...interface{},
) {
	if sp := trace.SpanFromContext(ctx); sp.IsRecording() {
		msg := redact.Sprintf(format, args...)
		sp.AddEvent(msg.StripMarkers(), trace.WithAttributes(
			attribute.Int("verbosity", int(level)),
		))
	}
	if V(level) {
		logfDepth(ctx, depth+1, Severity_INFO, format, args...)
	}
}

func exit(code int) {
	logging.mu.Lock()
	f := logging.mu.exitOverride
	logging.mu.Unlock()
	if f != nil {
		f(code)
		return
	}
	os.Exit(code)
}

// SetExitFunc allows setting a function that will be called to exit the
// process when a Fatal message is generated. Call with a nil function to
// undo.
func SetExitFunc(f func(int)) {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	logging.mu.exitOverride = f
}

// logEntry is a single formatted log event.
type logEntry struct {
	sev     Severity
	time    time.Time
	goid    int64
	file    string
	line    int
	tags    *logtags.Buffer
	payload redact.RedactableString
}

func makeEntry(
	ctx context.Context, sev Severity, depth int, format string, args ...interface{},
) logEntry {
	e := logEntry{
		sev:  sev,
		time: timeutil.Now(),
		goid: goid.Get(),
		tags: logtags.FromContext(ctx),
	}
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		if i := strings.LastIndexByte(file, '/'); i >= 0 {
			file = file[i+1:]
		}
		e.file, e.line = file, line
	} else {
		e.file, e.line = "???", 1
	}
	if len(args) == 0 {
		// Treat the format as a literal so stray verbs are not interpreted.
		e.payload = redact.Sprint(redact.SafeString(format))
	} else {
		e.payload = redact.Sprintf(format, args...)
	}
	return e
}

// format renders the entry in the crdb-v1 layout:
//
//	I261019 12:00:00.000000 123 file.go:45 [tag1,tag2=val] message
func (e logEntry) format(cp *colorProfile, redactable bool) []byte {
	var buf strings.Builder
	if cp != nil {
		buf.Write(cp.severityPrefix(e.sev))
	}
	buf.WriteByte(e.sev.char())
	if cp != nil {
		buf.Write(colorReset)
		buf.Write(cp.timePrefix)
	}
	buf.WriteString(e.time.Format("060102 15:04:05.000000"))
	if cp != nil {
		buf.Write(colorReset)
	}
	fmt.Fprintf(&buf, " %d %s:%d ", e.goid, e.file, e.line)
	if e.tags != nil {
		buf.WriteByte('[')
		formatTags(&buf, e.tags)
		buf.WriteString("] ")
	}
	if redactable {
		buf.WriteString(string(e.payload))
	} else {
		buf.WriteString(e.payload.StripMarkers())
	}
	buf.WriteByte('\n')
	return []byte(buf.String())
}

// formatTags renders tags as a comma separated list. Single-letter keys are
// glued to their value (n1), longer keys use key=value.
func formatTags(buf *strings.Builder, tags *logtags.Buffer) {
	for i, t := range tags.Get() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(t.Key())
		if t.Value() == nil {
			continue
		}
		if len(t.Key()) > 1 {
			buf.WriteByte('=')
		}
		buf.WriteString(t.ValueStr())
	}
}

func logfDepth(
	ctx context.Context, depth int, sev Severity, format string, args ...interface{},
) {
	entry := makeEntry(ctx, sev, depth+1, format, args...)
	outputEntry(entry)
}

func outputEntry(entry logEntry) {
	redactable := logging.redactable.Load()
	logging.mu.Lock()
	defer logging.mu.Unlock()
	if logging.mu.out == nil {
		return
	}
	// Write errors are dropped: there is nowhere left to report them.
	_, _ = logging.mu.out.Write(entry.format(logging.mu.color, redactable))
}
