// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"context"
	"strings"

	"github.com/cockroachdb/ash/pkg/util/ash"
	"github.com/cockroachdb/ash/pkg/util/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// statusEventLogger is a span processor that logs the wait statuses a
// request went through when its span ends, at verbosity 1.
type statusEventLogger struct{}

var _ sdktrace.SpanProcessor = statusEventLogger{}

func (statusEventLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (statusEventLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	if !log.V(1) {
		return
	}
	log.Infof(context.Background(), "%s %s: %s",
		s.Name(), s.SpanContext().SpanID(), strings.Join(statusTransitions(s), " -> "))
}

// statusTransitions returns the names of the wait statuses recorded on s, in
// order.
func statusTransitions(s sdktrace.ReadOnlySpan) []string {
	var statuses []string
	for _, ev := range s.Events() {
		if ev.Name != ash.WaitStatusEventName {
			continue
		}
		for _, kv := range ev.Attributes {
			if kv.Key == "ash.wait_status" {
				statuses = append(statuses, kv.Value.AsString())
			}
		}
	}
	return statuses
}

func (statusEventLogger) Shutdown(context.Context) error   { return nil }
func (statusEventLogger) ForceFlush(context.Context) error { return nil }
