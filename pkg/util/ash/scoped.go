// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package ash

import "context"

// ScopedWaitState installs a wait state as the calling goroutine's current
// one until Release is called, at which point the previous wait state is
// restored unconditionally. The guard does not take ownership of the wait
// state.
//
//	s := ash.MakeScopedWaitState(ctx, ws)
//	defer s.Release()
type ScopedWaitState struct {
	slot     *Slot
	prev     *WaitStateInfo
	released bool
}

// MakeScopedWaitState installs w (which may be nil, meaning "unknown") in
// the slot carried by ctx. Without a slot the guard does nothing.
func MakeScopedWaitState(ctx context.Context, w *WaitStateInfo) ScopedWaitState {
	slot := SlotFromContext(ctx)
	if slot == nil {
		return ScopedWaitState{released: true}
	}
	s := ScopedWaitState{slot: slot, prev: slot.Load()}
	slot.Store(w)
	return s
}

// Release restores the wait state that was current when the guard was made.
// Calls after the first are no-ops.
func (s *ScopedWaitState) Release() {
	if s.released {
		return
	}
	s.released = true
	s.slot.Store(s.prev)
}

// ScopedWaitStatus sets a status on a wait state until it is released. On
// release the previous status is restored only if the wait state still
// carries the status set by this guard: a status set by someone else in the
// meantime is more specific and is left in place.
//
//	s := ash.MakeScopedWaitStatusCurrent(ctx, OnDiskRead)
//	defer s.Release()
type ScopedWaitStatus struct {
	waitState *WaitStateInfo
	state     Code
	prevState Code
}

// MakeScopedWaitStatus sets the status of w to c. A nil w makes an inert
// guard.
func MakeScopedWaitStatus(w *WaitStateInfo, c Code) ScopedWaitStatus {
	s := ScopedWaitStatus{waitState: w, state: c}
	if w != nil {
		s.prevState = w.State()
		w.SetState(c)
	}
	return s
}

// MakeScopedWaitStatusCurrent sets the status of the calling goroutine's
// current wait state, if any, and records the transition on the tracing
// span carried by ctx.
func MakeScopedWaitStatusCurrent(ctx context.Context, c Code) ScopedWaitStatus {
	s := MakeScopedWaitStatus(CurrentWaitState(ctx), c)
	if s.waitState != nil {
		recordStatusEvent(ctx, c)
	}
	return s
}

// ResetToPrevStatus restores the status that preceded the guard if the
// wait state still carries the guard's status. It may be called before the
// guard goes out of scope; a later Release then finds the status changed
// and does nothing.
func (s *ScopedWaitStatus) ResetToPrevStatus() {
	if s.waitState != nil {
		s.waitState.compareAndSetState(s.state, s.prevState)
	}
}

// Release is ResetToPrevStatus, named for use with defer.
func (s *ScopedWaitStatus) Release() {
	s.ResetToPrevStatus()
}
