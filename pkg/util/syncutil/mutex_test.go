// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package syncutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMutexGuardsCounter(t *testing.T) {
	var mu struct {
		Mutex
		n int
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				mu.Lock()
				mu.AssertHeld()
				mu.n++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 8000, mu.n)
}

func TestRWMutexReaders(t *testing.T) {
	var rw RWMutex
	rw.RLock()
	rw.AssertRHeld()

	// A reader on another goroutine must not block behind the first.
	done := make(chan struct{})
	go func() {
		defer close(done)
		rw.RLock()
		rw.RUnlock()
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("second reader blocked behind the first")
	}
	rw.RUnlock()

	rw.Lock()
	rw.AssertHeld()
	rw.Unlock()
}
