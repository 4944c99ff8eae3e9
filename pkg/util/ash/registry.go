// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package ash

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/ash/pkg/util/ash/ashpb"
	"github.com/cockroachdb/ash/pkg/util/log"
	"github.com/cockroachdb/ash/pkg/util/syncutil"
	"github.com/cockroachdb/ash/pkg/util/timeutil"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/google/btree"
)

// Registry tracks the slots of the goroutines that report wait states, so
// that inspectors can enumerate what every registered goroutine is doing.
type Registry struct {
	mu struct {
		syncutil.RWMutex
		nextID int64
		// slots is ordered by registration id.
		slots *btree.BTreeG[*registration]
	}
}

type registration struct {
	id          int64
	slot        *Slot
	goroutineID int64
	name        string
	registered  time.Time
}

// SlotInfo describes a registered slot at the time it was visited.
type SlotInfo struct {
	GoroutineID int64
	Name        string
	Registered  time.Time
	// WaitState is the slot's current wait state, or nil.
	WaitState *WaitStateInfo
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.mu.slots = btree.NewG(8, func(a, b *registration) bool { return a.id < b.id })
	return r
}

// Register installs a new slot owned by the calling goroutine in ctx and
// records it under name. The returned function unregisters the slot; it is
// safe to call more than once.
func (r *Registry) Register(ctx context.Context, name string) (context.Context, func()) {
	ctx, slot := ContextWithSlot(ctx)
	reg := &registration{
		slot:        slot,
		goroutineID: slot.owner,
		name:        name,
		registered:  timeutil.Now(),
	}
	r.mu.Lock()
	reg.id = r.mu.nextID
	r.mu.nextID++
	r.mu.slots.ReplaceOrInsert(reg)
	r.mu.Unlock()

	ctx = logtags.AddTag(ctx, "ash", name)
	log.VEventf(ctx, 2, "registered wait-state slot for goroutine %d", reg.goroutineID)
	return ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.mu.slots.Delete(reg)
	}
}

// Len returns the number of registered slots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mu.slots.Len()
}

// Visit calls fn for every registered slot, in registration order, until
// fn returns false. fn is called without the registry's lock held, so it
// may take its time and may register or unregister slots.
func (r *Registry) Visit(fn func(SlotInfo) bool) {
	r.mu.RLock()
	regs := make([]*registration, 0, r.mu.slots.Len())
	r.mu.slots.Ascend(func(reg *registration) bool {
		regs = append(regs, reg)
		return true
	})
	r.mu.RUnlock()

	for _, reg := range regs {
		info := SlotInfo{
			GoroutineID: reg.goroutineID,
			Name:        reg.name,
			Registered:  reg.registered,
			WaitState:   reg.slot.Load(),
		}
		if !fn(info) {
			return
		}
	}
}

// Sample is the serialized wait state of one registered goroutine.
type Sample struct {
	GoroutineID int64
	Name        string
	Registered  time.Time
	State       *ashpb.WaitStateInfo
}

// Snapshot serializes the current wait state of every registered goroutine
// that has one.
func (r *Registry) Snapshot() []Sample {
	var samples []Sample
	r.Visit(func(info SlotInfo) bool {
		if info.WaitState == nil {
			return true
		}
		s := Sample{
			GoroutineID: info.GoroutineID,
			Name:        info.Name,
			Registered:  info.Registered,
			State:       &ashpb.WaitStateInfo{},
		}
		info.WaitState.ToProto(s.State)
		samples = append(samples, s)
		return true
	})
	return samples
}

// MarshalJSON implements json.Marshaler. The wait state is rendered with
// the protobuf JSON mapping.
func (s Sample) MarshalJSON() ([]byte, error) {
	state, err := ashpb.MessageToJSONString(s.State, false /* emitDefaults */)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(struct {
		GoroutineID int64           `json:"goroutine_id"`
		Name        string          `json:"name"`
		Registered  time.Time       `json:"registered"`
		State       json.RawMessage `json:"state"`
	}{
		GoroutineID: s.GoroutineID,
		Name:        s.Name,
		Registered:  s.Registered,
		State:       json.RawMessage(state),
	})
	return b, errors.Wrap(err, "encoding wait-state sample")
}
