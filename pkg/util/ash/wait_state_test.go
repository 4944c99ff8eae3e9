// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package ash

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/ash/pkg/util/ash/ashpb"
	"github.com/cockroachdb/ash/pkg/util/buildutil"
	"github.com/cockroachdb/ash/pkg/util/leaktest"
	"github.com/stretchr/testify/require"
)

func TestStateVisibleAcrossGoroutines(t *testing.T) {
	defer leaktest.AfterTest(t)()

	w := NewWaitStateInfo(Metadata{})
	require.Equal(t, Unused, w.State())

	set := make(chan struct{})
	go func() {
		w.SetState(testS2)
		close(set)
	}()
	<-set
	require.Equal(t, testS2, w.State())
}

func TestSetTopLevelRequestID(t *testing.T) {
	defer leaktest.AfterTest(t)()

	w := NewWaitStateInfo(Metadata{})
	w.SetTopLevelRequestID(5)
	require.Equal(t, []uint64{5, 25}, w.Metadata().TopLevelRequestID)

	// The square wraps around.
	w.SetTopLevelRequestID(1 << 32)
	require.Equal(t, []uint64{1 << 32, 0}, w.Metadata().TopLevelRequestID)
}

func TestWaitStateSetters(t *testing.T) {
	defer leaktest.AfterTest(t)()

	w := NewWaitStateInfo(Metadata{QueryID: 1, CurrentRequestID: 2})
	w.SetQueryID(3)
	require.Equal(t, int64(3), w.QueryID())
	w.SetCurrentRequestID(4)

	ids := []uint64{7, 8}
	w.SetTopLevelNodeID(ids)
	ids[0] = 0

	require.NoError(t, w.SetClientNodeIP("10.1.2.3:5433"))
	require.Error(t, w.SetClientNodeIP("10.1.2.3"))

	w.UpdateAuxInfo(AuxInfo{TableID: "tbl"})
	w.UpdateAuxInfo(AuxInfo{Method: "Scan"})

	require.Equal(t, Metadata{
		TopLevelNodeID:   []uint64{7, 8},
		QueryID:          3,
		CurrentRequestID: 4,
		ClientNodeHost:   0x0A010203,
		ClientNodePort:   5433,
	}, w.Metadata())
	require.Equal(t, AuxInfo{TableID: "tbl", Method: "Scan"}, w.AuxInfo())

	// The returned metadata is a copy.
	m := w.Metadata()
	m.TopLevelNodeID[0] = 99
	require.Equal(t, []uint64{7, 8}, w.Metadata().TopLevelNodeID)
}

func TestHistory(t *testing.T) {
	defer leaktest.AfterTest(t)()

	t.Run("disabled", func(t *testing.T) {
		w := NewWaitStateInfoWithOptions(Metadata{}, Options{})
		w.SetState(testS0)
		w.SetState(testS1)
		require.Nil(t, w.History())
		require.Zero(t, w.NumUpdates())
	})

	t.Run("unbounded", func(t *testing.T) {
		w := NewWaitStateInfoWithOptions(Metadata{}, historyOptions)
		w.SetState(testS0)
		s := MakeScopedWaitStatus(w, testS1)
		s.Release()
		require.Equal(t, []Code{testS0, testS1, testS0}, w.History())
		require.Equal(t, int64(3), w.NumUpdates())

		// A reset that finds the status changed records nothing.
		s.Release()
		require.Equal(t, int64(3), w.NumUpdates())
	})

	t.Run("bounded", func(t *testing.T) {
		w := NewWaitStateInfoWithOptions(Metadata{}, Options{TrackHistory: true, HistoryLimit: 3})
		for _, c := range []Code{testS0, testS1, testS2, testS3, testBusy} {
			w.SetState(c)
		}
		require.Equal(t, []Code{testS2, testS3, testBusy}, w.History())
		require.Equal(t, int64(5), w.NumUpdates())
	})
}

func TestWaitStateToProto(t *testing.T) {
	defer leaktest.AfterTest(t)()

	w := NewWaitStateInfoWithOptions(Metadata{QueryID: 42}, historyOptions)
	w.SetState(testS1)
	w.UpdateAuxInfo(AuxInfo{TabletID: "t1"})

	var pb ashpb.WaitStateInfo
	w.ToProto(&pb)
	require.Equal(t, ashpb.WaitStateInfo{
		Metadata:               &ashpb.WaitStateMetadata{QueryID: 42},
		WaitStatusCode:         uint32(testS1),
		WaitStatusCodeAsString: "S1",
		AuxInfo:                &ashpb.WaitStateAuxInfo{TabletID: "t1"},
	}, pb)

	// The code name is only serialized by containers tracking history.
	w = NewWaitStateInfoWithOptions(Metadata{}, Options{})
	w.SetState(testS1)
	pb = ashpb.WaitStateInfo{}
	w.ToProto(&pb)
	require.Equal(t, uint32(testS1), pb.WaitStatusCode)
	if buildutil.TrackWaitHistory {
		require.Equal(t, "S1", pb.WaitStatusCodeAsString)
	} else {
		require.Empty(t, pb.WaitStatusCodeAsString)
	}
}

func TestWaitStateString(t *testing.T) {
	defer leaktest.AfterTest(t)()

	w := NewWaitStateInfoWithOptions(Metadata{QueryID: 42}, Options{})
	w.SetState(testS1)
	w.UpdateAuxInfo(AuxInfo{Method: "Read"})
	require.Equal(t,
		"{metadata: {top_level_node_id: [], top_level_request_id: [], query_id: 42, current_request_id: 0, client_node_ip: 0.0.0.0:0}, code: S1, aux_info: {table_id: , tablet_id: , method: Read}}",
		w.String())

	w = NewWaitStateInfoWithOptions(Metadata{}, historyOptions)
	w.SetState(testS0)
	w.SetState(testS1)
	require.Contains(t, w.String(), "code: S1, aux_info: {table_id: , tablet_id: , method: }, num_updates: 2, history: [S0 S1]}")
}

// TestEndToEnd walks a request through adoption, status guards and
// serialization.
func TestEndToEnd(t *testing.T) {
	defer leaktest.AfterTest(t)()

	ctx, _ := ContextWithSlot(context.Background())
	w := NewWaitStateInfo(Metadata{QueryID: 7})

	adopt := MakeScopedWaitState(ctx, w)
	require.Same(t, w, CurrentWaitState(ctx))

	UpdateMetadataFromProto(ctx, &ashpb.WaitStateMetadata{CurrentRequestID: 11})
	CurrentWaitState(ctx).SetTopLevelRequestID(5)
	require.NoError(t, CurrentWaitState(ctx).SetClientNodeIP("127.0.0.1:26257"))

	status := MakeScopedWaitStatusCurrent(ctx, testS1)
	var pb ashpb.WaitStateInfo
	CurrentWaitState(ctx).ToProto(&pb)
	status.Release()
	adopt.Release()

	require.Nil(t, CurrentWaitState(ctx))
	require.Equal(t, Unused, w.State())
	require.Equal(t, uint32(testS1), pb.WaitStatusCode)
	require.Equal(t, &ashpb.WaitStateMetadata{
		TopLevelRequestID: []uint64{5, 25},
		QueryID:           7,
		CurrentRequestID:  11,
		ClientNodeHost:    0x7F000001,
		ClientNodePort:    26257,
	}, pb.GetMetadata())
	require.Equal(t, Metadata{
		TopLevelRequestID: []uint64{5, 25},
		QueryID:           7,
		CurrentRequestID:  11,
		ClientNodeHost:    0x7F000001,
		ClientNodePort:    26257,
	}, MetadataFromProto(pb.GetMetadata()))
}

func TestSetWaitStatusTo(t *testing.T) {
	defer leaktest.AfterTest(t)()

	SetWaitStatusTo(nil, testS1)
	w := NewWaitStateInfo(Metadata{})
	SetWaitStatusTo(w, testS1)
	require.Equal(t, testS1, w.State())
}

func TestConcurrentUpdates(t *testing.T) {
	defer leaktest.AfterTest(t)()

	const writers = 4
	const iterations = 200
	w := NewWaitStateInfoWithOptions(Metadata{}, historyOptions)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 1; j <= iterations; j++ {
				w.UpdateMetadata(Metadata{QueryID: int64(i*iterations + j)})
				w.UpdateAuxInfo(AuxInfo{Method: "m"})
				w.SetState(testS1)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < iterations; j++ {
			var pb ashpb.WaitStateInfo
			w.ToProto(&pb)
			_ = w.String()
		}
	}()
	wg.Wait()

	require.NotZero(t, w.QueryID())
	require.Equal(t, int64(writers*iterations), w.NumUpdates())
	require.Len(t, w.History(), writers*iterations)
}

func TestDefaultContainerToProto(t *testing.T) {
	defer leaktest.AfterTest(t)()

	w := NewWaitStateInfo(Metadata{})
	w.SetQueryID(42)
	w.SetState(testBusy)

	var pb ashpb.WaitStateInfo
	w.ToProto(&pb)
	expected := ashpb.WaitStateInfo{
		Metadata:       &ashpb.WaitStateMetadata{QueryID: 42},
		WaitStatusCode: uint32(testBusy),
		AuxInfo:        &ashpb.WaitStateAuxInfo{},
	}
	if buildutil.TrackWaitHistory {
		expected.WaitStatusCodeAsString = "Busy"
	}
	require.Equal(t, expected, pb)
}
