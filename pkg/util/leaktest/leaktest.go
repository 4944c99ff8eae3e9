// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// Copyright 2016 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package leaktest provides tools to detect leaked goroutines in tests.
// To use it, call "defer leaktest.AfterTest(t)()" at the beginning of each
// test that may use goroutines.
package leaktest

import (
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/ash/pkg/util/timeutil"
	"github.com/cockroachdb/errors"
	"github.com/petermattis/goid"
)

// interestingGoroutines returns all goroutines we care about for the purpose
// of leak checking, keyed by goroutine id.
func interestingGoroutines() map[int64]string {
	buf := make([]byte, 2<<20)
	buf = buf[:runtime.Stack(buf, true)]
	gs := make(map[int64]string)
	for _, g := range strings.Split(string(buf), "\n\n") {
		sl := strings.SplitN(g, "\n", 2)
		if len(sl) != 2 {
			continue
		}
		stack := strings.TrimSpace(sl[1])
		if stack == "" ||
			strings.Contains(stack, "testing.RunTests") ||
			strings.Contains(stack, "testing.Main(") ||
			strings.Contains(stack, "testing.(*T).Run") ||
			strings.Contains(stack, "testing.(*M).") ||
			strings.Contains(stack, "runtime.goexit") && strings.Contains(stack, "created by runtime.gc") ||
			strings.Contains(stack, "runtime.MHeap_Scavenger") ||
			strings.Contains(stack, "signal.signal_recv") ||
			strings.Contains(stack, "sigterm.handler") ||
			strings.Contains(stack, "runtime_mcall") ||
			strings.Contains(stack, "goroutine in C code") ||
			strings.Contains(stack, "runtime.CPUProfile") ||
			// The OpenTelemetry batch span processor owns a long lived
			// goroutine per provider; tests shut providers down explicitly.
			strings.Contains(stack, "go.opentelemetry.io/otel/sdk/trace.(*batchSpanProcessor)") ||
			// The deadlock detector keeps a watchdog goroutine alive.
			strings.Contains(stack, "github.com/sasha-s/go-deadlock") {
			continue
		}
		var id int64
		if _, err := parseGoroutineID(sl[0], &id); err != nil {
			continue
		}
		gs[id] = g
	}
	return gs
}

// parseGoroutineID extracts the id from a "goroutine 123 [running]:" header.
func parseGoroutineID(header string, id *int64) (int, error) {
	fields := strings.Fields(header)
	if len(fields) < 2 || fields[0] != "goroutine" {
		return 0, errors.Newf("unexpected goroutine header %q", header)
	}
	var n int64
	for _, c := range fields[1] {
		if c < '0' || c > '9' {
			return 0, errors.Newf("unexpected goroutine id in %q", header)
		}
		n = n*10 + int64(c-'0')
	}
	*id = n
	return len(fields), nil
}

// AfterTest snapshots the currently-running goroutines and returns a
// function to be run at the end of tests to see whether any goroutines
// leaked.
func AfterTest(t testing.TB) func() {
	orig := interestingGoroutines()
	self := goid.Get()
	return func() {
		if t.Failed() {
			return
		}
		// Loop, waiting for goroutines to shut down. Wait up to 5 seconds,
		// but finish as quickly as possible.
		deadline := timeutil.Now().Add(5 * time.Second)
		for {
			if err := diffGoroutines(orig, self); err == nil {
				return
			} else if timeutil.Now().After(deadline) {
				t.Error(err)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// diffGoroutines returns an error if any goroutine not present in orig (and
// other than self) is still running.
func diffGoroutines(orig map[int64]string, self int64) error {
	var leaked []string
	for id, stack := range interestingGoroutines() {
		if _, ok := orig[id]; ok || id == self {
			continue
		}
		leaked = append(leaked, stack)
	}
	if len(leaked) == 0 {
		return nil
	}
	sort.Strings(leaked)
	return errors.Newf("leaked goroutines:\n%s", strings.Join(leaked, "\n\n"))
}
