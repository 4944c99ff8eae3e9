// Copyright 2016 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package timeutil

import (
	"testing"
	"time"
)

func TestTimerStop(t *testing.T) {
	var timer Timer
	if timer.Stop() {
		t.Fatalf("uninitialized timer reported as stopped")
	}
	timer.Reset(time.Hour)
	if !timer.Stop() {
		t.Fatalf("expected pending timer to be stopped")
	}
	if timer.C != nil {
		t.Fatalf("expected timer channel to be cleared after Stop")
	}
}

func TestTimerResetAfterRead(t *testing.T) {
	var timer Timer
	defer timer.Stop()
	for i := 0; i < 3; i++ {
		timer.Reset(time.Millisecond)
		select {
		case <-timer.C:
			timer.Read = true
		case <-time.After(10 * time.Second):
			t.Fatalf("timer did not fire")
		}
	}
}

func TestTimerResetWithoutRead(t *testing.T) {
	var timer Timer
	defer timer.Stop()
	timer.Reset(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	// The expired value was never received; Reset must drain it so that the
	// next receive observes the new deadline.
	timer.Reset(time.Hour)
	select {
	case <-timer.C:
		t.Fatalf("received stale timer value")
	case <-time.After(10 * time.Millisecond):
	}
}
