// Copyright 2019 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"bytes"
	"context"
	stdLog "log"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// NewStdLogger creates a *stdLog.Logger that forwards messages to this
// package's output with the specified severity.
//
// The prefix should be the path of the package for which this logger
// is used. The prefix will be concatenated directly with the name
// of the file that triggered the logging.
func NewStdLogger(severity Severity, prefix string) *stdLog.Logger {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return stdLog.New(logBridge(severity), prefix, stdLog.Lshortfile)
}

// CopyStandardLogTo arranges for messages written to the Go "log" package's
// default logger to also appear in this package's output with the specified
// severity. Valid names are "INFO", "WARNING", "ERROR", and "FATAL". If the
// name is not recognized, CopyStandardLogTo panics.
func CopyStandardLogTo(severityName string) {
	sev, ok := SeverityByName(severityName)
	if !ok {
		panic(errors.AssertionFailedf("CopyStandardLogTo(%q): unrecognized Severity name", severityName))
	}
	// Set a log format that captures the user's file and line:
	//   d.go:23: message
	stdLog.SetFlags(stdLog.Lshortfile)
	stdLog.SetOutput(logBridge(sev))
}

// logBridge provides the Write method that connects Go's standard logs to
// the logs provided by this package.
type logBridge Severity

// Write parses the standard logging line and passes its components to the
// logger for Severity(lb).
func (lb logBridge) Write(b []byte) (n int, err error) {
	entry := makeEntry(context.Background(), Severity(lb), 0, "")

	// Split "d.go:23: message" into "d.go", "23", and "message".
	if parts := bytes.SplitN(b, []byte{':'}, 3); len(parts) != 3 || len(parts[0]) < 1 || len(parts[2]) < 1 {
		entry.payload = redact.Sprintf("bad log format: %s", b)
	} else {
		// The "(gostd)" prefix marks lines that did not originate from a
		// direct call into this package.
		entry.file = "(gostd) " + string(parts[0])
		lineno, err := strconv.ParseInt(string(parts[1]), 10, 64)
		if err != nil {
			entry.payload = redact.Sprintf("bad line number: %s", b)
			lineno = 1
		} else {
			payload := bytes.TrimSuffix(parts[2][1:], []byte{'\n'}) // skip leading space and trailing newline
			entry.payload = redact.Sprintf("%s", payload)
		}
		entry.line = int(lineno)
	}
	outputEntry(entry)
	return len(b), nil
}
