// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package ashpb

import (
	"testing"

	"github.com/gogo/protobuf/proto"
	"github.com/stretchr/testify/require"
)

func TestZeroFieldsAreOmitted(t *testing.T) {
	require.Equal(t, 0, proto.Size(&WaitStateMetadata{}))
	require.Equal(t, 0, proto.Size(&WaitStateAuxInfo{}))
	require.Equal(t, 0, proto.Size(&WaitStateInfo{}))

	// Only the query id is encoded: one tag byte plus one varint byte.
	require.Equal(t, 2, proto.Size(&WaitStateMetadata{QueryID: 42}))
}

func TestWireRoundTrip(t *testing.T) {
	in := &WaitStateInfo{
		Metadata: &WaitStateMetadata{
			TopLevelRequestID: []uint64{5, 25},
			TopLevelNodeID:    []uint64{1, 2},
			QueryID:           42,
			CurrentRequestID:  -7,
			ClientNodeHost:    0x7f000001,
			ClientNodePort:    26257,
		},
		WaitStatusCode:         0xEF000001,
		WaitStatusCodeAsString: "RpcHandler",
		AuxInfo: &WaitStateAuxInfo{
			TabletID: "tablet-1",
			TableID:  "table-1",
			Method:   "Read",
		},
	}
	b, err := proto.Marshal(in)
	require.NoError(t, err)

	var out WaitStateInfo
	require.NoError(t, proto.Unmarshal(b, &out))
	require.Equal(t, in, &out)
}

func TestMutableAccessors(t *testing.T) {
	var m *WaitStateInfo
	require.Nil(t, m.GetMetadata())
	require.Nil(t, m.GetAuxInfo())

	m = &WaitStateInfo{}
	m.MutableMetadata().QueryID = 1
	m.MutableAuxInfo().Method = "Write"
	require.Equal(t, int64(1), m.GetMetadata().QueryID)
	require.Equal(t, "Write", m.GetAuxInfo().Method)
	require.Same(t, m.Metadata, m.MutableMetadata())
}

func TestMessageToJSONString(t *testing.T) {
	msg := &WaitStateInfo{
		Metadata:       &WaitStateMetadata{QueryID: 42},
		WaitStatusCode: 3,
	}
	s, err := MessageToJSONString(msg, false /* emitDefaults */)
	require.NoError(t, err)
	require.Equal(t, `{"metadata":{"queryId":"42"},"waitStatusCode":3}`, s)

	s, err = MessageToJSONString(&WaitStateAuxInfo{}, true /* emitDefaults */)
	require.NoError(t, err)
	require.Equal(t, `{"tabletId":"","tableId":"","method":""}`, s)
}

// TestFieldNumbers pins the encoding of every field so that the Go types and
// ash.proto cannot drift apart silently.
func TestFieldNumbers(t *testing.T) {
	for _, tc := range []struct {
		name     string
		msg      proto.Message
		expected []byte
	}{
		{"top_level_request_id", &WaitStateMetadata{TopLevelRequestID: []uint64{1, 2}}, []byte{0x0a, 0x02, 0x01, 0x02}},
		{"top_level_node_id", &WaitStateMetadata{TopLevelNodeID: []uint64{1, 2}}, []byte{0x12, 0x02, 0x01, 0x02}},
		{"query_id", &WaitStateMetadata{QueryID: 1}, []byte{0x18, 0x01}},
		{"current_request_id", &WaitStateMetadata{CurrentRequestID: 1}, []byte{0x20, 0x01}},
		{"client_node_host", &WaitStateMetadata{ClientNodeHost: 1}, []byte{0x28, 0x01}},
		{"client_node_port", &WaitStateMetadata{ClientNodePort: 1}, []byte{0x30, 0x01}},
		{"tablet_id", &WaitStateAuxInfo{TabletID: "a"}, []byte{0x0a, 0x01, 'a'}},
		{"table_id", &WaitStateAuxInfo{TableID: "a"}, []byte{0x12, 0x01, 'a'}},
		{"method", &WaitStateAuxInfo{Method: "a"}, []byte{0x1a, 0x01, 'a'}},
		{"metadata and aux_info", &WaitStateInfo{Metadata: &WaitStateMetadata{}, AuxInfo: &WaitStateAuxInfo{}}, []byte{0x0a, 0x00, 0x22, 0x00}},
		{"wait_status_code", &WaitStateInfo{WaitStatusCode: 1}, []byte{0x10, 0x01}},
		{"wait_status_code_as_string", &WaitStateInfo{WaitStatusCodeAsString: "a"}, []byte{0x1a, 0x01, 'a'}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b, err := proto.Marshal(tc.msg)
			require.NoError(t, err)
			require.Equal(t, tc.expected, b)
		})
	}
}
