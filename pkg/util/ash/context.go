// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package ash

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/ash/pkg/util/ash/ashpb"
	"github.com/cockroachdb/ash/pkg/util/buildutil"
	"github.com/cockroachdb/ash/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/petermattis/goid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Slot holds the wait state of what a goroutine is doing right now. Each
// goroutine that reports wait states owns one slot, carried in its
// context; only the owner changes the slot, other goroutines read it
// through the Registry.
//
// A context carrying a slot must not be handed to another goroutine that
// adopts wait states; that goroutine should install its own slot with
// ContextWithSlot or Registry.Register.
type Slot struct {
	current atomic.Pointer[WaitStateInfo]
	owner   int64
}

type slotKey struct{}

// ContextWithSlot returns a context carrying a new, empty slot owned by the
// calling goroutine.
func ContextWithSlot(ctx context.Context) (context.Context, *Slot) {
	s := &Slot{owner: goid.Get()}
	return context.WithValue(ctx, slotKey{}, s), s
}

// SlotFromContext returns the slot carried by ctx, or nil.
func SlotFromContext(ctx context.Context) *Slot {
	s, _ := ctx.Value(slotKey{}).(*Slot)
	return s
}

// Load returns the wait state stored in the slot. It is safe to call on a
// nil slot and from any goroutine.
func (s *Slot) Load() *WaitStateInfo {
	if s == nil {
		return nil
	}
	return s.current.Load()
}

// Store installs w in the slot; nil means the goroutine's activity is
// unknown. Storing into a nil slot is a no-op.
func (s *Slot) Store(w *WaitStateInfo) {
	if s == nil {
		return
	}
	if buildutil.Invariants {
		if g := goid.Get(); g != s.owner {
			panic(errors.AssertionFailedf("wait-state slot owned by goroutine %d written by goroutine %d",
				redact.Safe(s.owner), redact.Safe(g)))
		}
	}
	s.current.Store(w)
}

// CurrentWaitState returns the wait state the calling goroutine is
// currently working on behalf of, or nil if there is none.
func CurrentWaitState(ctx context.Context) *WaitStateInfo {
	w := SlotFromContext(ctx).Load()
	if w == nil && log.V(3) {
		log.VEventf(ctx, 3, "no current wait state")
	}
	return w
}

// SetCurrentWaitState installs w as the calling goroutine's current wait
// state. It is a no-op if ctx carries no slot.
func SetCurrentWaitState(ctx context.Context, w *WaitStateInfo) {
	SlotFromContext(ctx).Store(w)
}

// UpdateMetadataFromProto merges pb into the current wait state, if any.
func UpdateMetadataFromProto(ctx context.Context, pb *ashpb.WaitStateMetadata) {
	if w := CurrentWaitState(ctx); w != nil {
		w.UpdateMetadata(MetadataFromProto(pb))
	}
}

// SetWaitStatusTo sets the status of w if w is not nil.
func SetWaitStatusTo(w *WaitStateInfo, c Code) {
	if w != nil {
		w.SetState(c)
	}
}

// SetWaitStatus sets the status of the current wait state, if any, and
// records the transition on the tracing span carried by ctx.
func SetWaitStatus(ctx context.Context, c Code) {
	if w := CurrentWaitState(ctx); w != nil {
		w.SetState(c)
		recordStatusEvent(ctx, c)
	}
}

// WaitStatusEventName is the name of the span events recording status
// transitions.
const WaitStatusEventName = "wait_status"

func recordStatusEvent(ctx context.Context, c Code) {
	sp := trace.SpanFromContext(ctx)
	if !sp.IsRecording() {
		return
	}
	sp.AddEvent(WaitStatusEventName, trace.WithAttributes(
		attribute.Int64("ash.wait_status_code", int64(c)),
		attribute.String("ash.wait_status", c.String()),
	))
}
