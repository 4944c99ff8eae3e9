// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import "strings"

// Severity identifies the sort of log: info, warning etc.
type Severity int32

// Severity levels, in increasing order of importance.
const (
	Severity_UNKNOWN Severity = iota
	Severity_INFO
	Severity_WARNING
	Severity_ERROR
	Severity_FATAL
)

var severityNames = [...]string{
	Severity_UNKNOWN: "UNKNOWN",
	Severity_INFO:    "INFO",
	Severity_WARNING: "WARNING",
	Severity_ERROR:   "ERROR",
	Severity_FATAL:   "FATAL",
}

// String implements fmt.Stringer.
func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return severityNames[Severity_UNKNOWN]
	}
	return severityNames[s]
}

// SeverityByName attempts to parse the passed in string into a severity.
// (i.e. ERROR, INFO). If it succeeds, the returned bool is set to true.
func SeverityByName(s string) (Severity, bool) {
	s = strings.ToUpper(s)
	for i, name := range severityNames {
		if i != int(Severity_UNKNOWN) && name == s {
			return Severity(i), true
		}
	}
	return Severity_UNKNOWN, false
}

// char returns the first letter of the severity name, used as the
// leading character of each log line.
func (s Severity) char() byte {
	return s.String()[0]
}
