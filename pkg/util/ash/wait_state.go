// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package ash tracks what each goroutine of a server is currently waiting
// on, for live diagnostics ("active session history").
//
// A WaitStateInfo is created per unit of work (typically per request) and
// carries a status Code plus request metadata. A goroutine adopts the
// container for the duration of the work through a ScopedWaitState, and
// annotates the phases of the work with ScopedWaitStatus guards:
//
//	ctx, unregister := registry.Register(ctx, "worker")
//	defer unregister()
//	ws := ash.NewWaitStateInfo(ash.Metadata{QueryID: qid})
//	adopt := ash.MakeScopedWaitState(ctx, ws)
//	defer adopt.Release()
//	...
//	status := ash.MakeScopedWaitStatusCurrent(ctx, OnDiskRead)
//	readBlock()
//	status.Release()
//
// Inspectors read the registered goroutines' containers through the
// Registry. The status code is read and written without locking; the
// metadata and aux info are guarded by the container's mutex.
package ash

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/ash/pkg/util/ash/ashpb"
	"github.com/cockroachdb/ash/pkg/util/buildutil"
	"github.com/cockroachdb/ash/pkg/util/log"
	"github.com/cockroachdb/ash/pkg/util/ring"
	"github.com/cockroachdb/ash/pkg/util/syncutil"
	"github.com/cockroachdb/redact"
)

// DefaultHistoryLimit is the number of statuses retained by containers
// that track history with DefaultOptions.
const DefaultHistoryLimit = 256

// Options configures a WaitStateInfo.
type Options struct {
	// TrackHistory records every status set on the container, along with
	// the number of updates.
	TrackHistory bool
	// HistoryLimit bounds the recorded history, evicting the oldest
	// statuses first. Zero keeps every status.
	HistoryLimit int
}

// DefaultOptions returns the options used by NewWaitStateInfo. History is
// only tracked in binaries built with the track_wait_history tag.
func DefaultOptions() Options {
	return Options{
		TrackHistory: buildutil.TrackWaitHistory,
		HistoryLimit: DefaultHistoryLimit,
	}
}

// WaitStateInfo is the wait state of a unit of work. It is shared by
// pointer between the goroutine doing the work and any inspectors; by
// convention only one goroutine at a time changes its status.
type WaitStateInfo struct {
	code atomic.Uint32
	opts Options

	mu struct {
		syncutil.Mutex
		metadata   Metadata
		auxInfo    AuxInfo
		numUpdates int64
		history    ring.Buffer[Code]
	}
}

// NewWaitStateInfo creates a container with the given metadata and the
// default options.
func NewWaitStateInfo(meta Metadata) *WaitStateInfo {
	return NewWaitStateInfoWithOptions(meta, DefaultOptions())
}

// NewWaitStateInfoWithOptions creates a container with the given metadata
// and options.
func NewWaitStateInfoWithOptions(meta Metadata, opts Options) *WaitStateInfo {
	w := &WaitStateInfo{opts: opts}
	w.mu.metadata = meta.clone()
	return w
}

// SetState sets the status. The new status is immediately visible to
// concurrent readers of State.
func (w *WaitStateInfo) SetState(c Code) {
	if log.V(3) {
		log.Infof(context.TODO(), "%p %s setting state to %s", w, w, c)
	}
	w.code.Store(uint32(c))
	if w.opts.TrackHistory {
		w.recordHistory(c)
	}
}

// compareAndSetState sets the status to next if it is currently old, and
// reports whether it did.
func (w *WaitStateInfo) compareAndSetState(old, next Code) bool {
	if !w.code.CompareAndSwap(uint32(old), uint32(next)) {
		return false
	}
	if log.V(3) {
		log.Infof(context.TODO(), "%p %s restoring state to %s", w, w, next)
	}
	if w.opts.TrackHistory {
		w.recordHistory(next)
	}
	return true
}

func (w *WaitStateInfo) recordHistory(c Code) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mu.history.AddLastEvicting(c, w.opts.HistoryLimit)
	w.mu.numUpdates++
}

// State returns the current status.
func (w *WaitStateInfo) State() Code {
	return Code(w.code.Load())
}

// UpdateMetadata merges the set fields of meta into the container's
// metadata.
func (w *WaitStateInfo) UpdateMetadata(meta Metadata) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mu.metadata.UpdateFrom(meta)
}

// UpdateAuxInfo merges the set fields of aux into the container's aux info.
func (w *WaitStateInfo) UpdateAuxInfo(aux AuxInfo) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mu.auxInfo.UpdateFrom(aux)
}

// SetCurrentRequestID sets the id of the request currently being executed.
func (w *WaitStateInfo) SetCurrentRequestID(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mu.metadata.CurrentRequestID = id
}

// SetTopLevelRequestID sets the top level request id to the pair
// (id, id*id).
func (w *WaitStateInfo) SetTopLevelRequestID(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mu.metadata.TopLevelRequestID = []uint64{id, id * id}
}

// SetTopLevelNodeID sets the top level node id.
func (w *WaitStateInfo) SetTopLevelNodeID(id []uint64) {
	id = append([]uint64(nil), id...)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mu.metadata.TopLevelNodeID = id
}

// SetQueryID sets the query id.
func (w *WaitStateInfo) SetQueryID(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mu.metadata.QueryID = id
}

// QueryID returns the query id.
func (w *WaitStateInfo) QueryID() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mu.metadata.QueryID
}

// SetClientNodeIP sets the client origin from an "a.b.c.d:port" endpoint.
// See Metadata.SetClientNodeIP.
func (w *WaitStateInfo) SetClientNodeIP(endpoint string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mu.metadata.SetClientNodeIP(endpoint)
}

// Metadata returns a copy of the container's metadata.
func (w *WaitStateInfo) Metadata() Metadata {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mu.metadata.clone()
}

// AuxInfo returns a copy of the container's aux info.
func (w *WaitStateInfo) AuxInfo() AuxInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mu.auxInfo
}

// NumUpdates returns the number of statuses recorded since creation. It is
// always zero for containers that do not track history.
func (w *WaitStateInfo) NumUpdates() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mu.numUpdates
}

// History returns the recorded statuses, oldest first.
func (w *WaitStateInfo) History() []Code {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mu.history.Slice()
}

// ToProto writes the container into pb. The metadata and aux info are a
// consistent snapshot; the status is read independently and may be newer.
func (w *WaitStateInfo) ToProto(pb *ashpb.WaitStateInfo) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mu.metadata.ToProto(pb.MutableMetadata())
	code := w.State()
	pb.WaitStatusCode = uint32(code)
	if buildutil.TrackWaitHistory || w.opts.TrackHistory {
		pb.WaitStatusCodeAsString = code.String()
	}
	w.mu.auxInfo.ToProto(pb.MutableAuxInfo())
}

// String implements fmt.Stringer.
func (w *WaitStateInfo) String() string {
	return redact.StringWithoutMarkers(w)
}

// SafeFormat implements redact.SafeFormatter.
func (w *WaitStateInfo) SafeFormat(p redact.SafePrinter, _ rune) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p.Printf("{metadata: %s, code: %s, aux_info: %s", w.mu.metadata, w.State(), w.mu.auxInfo)
	if w.opts.TrackHistory {
		p.Printf(", num_updates: %d, history: %v", redact.Safe(w.mu.numUpdates), w.mu.history.Slice())
	}
	p.SafeRune('}')
}
