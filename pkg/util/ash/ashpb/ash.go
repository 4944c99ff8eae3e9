// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package ashpb holds the wire representation of wait states, as described
// by ash.proto. The message types are declared with protobuf struct tags and
// are marshaled by gogoproto's table-driven (reflection based) codec.
//
// The types are kept in sync with ash.proto by hand: a change to a field
// number, type or name in one file must be made in the other.
package ashpb

import (
	"github.com/cockroachdb/errors"
	"github.com/gogo/protobuf/jsonpb"
	"github.com/gogo/protobuf/proto"
)

// WaitStateMetadata correlates a wait state with the request, session and
// client it was recorded for. Zero values mean "not set".
type WaitStateMetadata struct {
	// TopLevelRequestID and TopLevelNodeID have exactly two elements when set.
	TopLevelRequestID []uint64 `protobuf:"varint,1,rep,packed,name=top_level_request_id,json=topLevelRequestId,proto3" json:"top_level_request_id,omitempty"`
	TopLevelNodeID    []uint64 `protobuf:"varint,2,rep,packed,name=top_level_node_id,json=topLevelNodeId,proto3" json:"top_level_node_id,omitempty"`
	QueryID           int64    `protobuf:"varint,3,opt,name=query_id,json=queryId,proto3" json:"query_id,omitempty"`
	CurrentRequestID  int64    `protobuf:"varint,4,opt,name=current_request_id,json=currentRequestId,proto3" json:"current_request_id,omitempty"`
	// ClientNodeHost is an IPv4 address in host byte order.
	ClientNodeHost uint32 `protobuf:"varint,5,opt,name=client_node_host,json=clientNodeHost,proto3" json:"client_node_host,omitempty"`
	ClientNodePort uint32 `protobuf:"varint,6,opt,name=client_node_port,json=clientNodePort,proto3" json:"client_node_port,omitempty"`
}

func (m *WaitStateMetadata) Reset()         { *m = WaitStateMetadata{} }
func (m *WaitStateMetadata) String() string { return proto.CompactTextString(m) }
func (*WaitStateMetadata) ProtoMessage()    {}

// WaitStateAuxInfo identifies the resource and method a wait state is
// associated with.
type WaitStateAuxInfo struct {
	TabletID string `protobuf:"bytes,1,opt,name=tablet_id,json=tabletId,proto3" json:"tablet_id,omitempty"`
	TableID  string `protobuf:"bytes,2,opt,name=table_id,json=tableId,proto3" json:"table_id,omitempty"`
	Method   string `protobuf:"bytes,3,opt,name=method,proto3" json:"method,omitempty"`
}

func (m *WaitStateAuxInfo) Reset()         { *m = WaitStateAuxInfo{} }
func (m *WaitStateAuxInfo) String() string { return proto.CompactTextString(m) }
func (*WaitStateAuxInfo) ProtoMessage()    {}

// WaitStateInfo is a point in time snapshot of a goroutine's wait state.
type WaitStateInfo struct {
	Metadata       *WaitStateMetadata `protobuf:"bytes,1,opt,name=metadata,proto3" json:"metadata,omitempty"`
	WaitStatusCode uint32             `protobuf:"varint,2,opt,name=wait_status_code,json=waitStatusCode,proto3" json:"wait_status_code,omitempty"`
	// WaitStatusCodeAsString is only populated by builds or containers that
	// track wait history.
	WaitStatusCodeAsString string            `protobuf:"bytes,3,opt,name=wait_status_code_as_string,json=waitStatusCodeAsString,proto3" json:"wait_status_code_as_string,omitempty"`
	AuxInfo                *WaitStateAuxInfo `protobuf:"bytes,4,opt,name=aux_info,json=auxInfo,proto3" json:"aux_info,omitempty"`
}

func (m *WaitStateInfo) Reset()         { *m = WaitStateInfo{} }
func (m *WaitStateInfo) String() string { return proto.CompactTextString(m) }
func (*WaitStateInfo) ProtoMessage()    {}

// GetMetadata returns the metadata, or nil.
func (m *WaitStateInfo) GetMetadata() *WaitStateMetadata {
	if m != nil {
		return m.Metadata
	}
	return nil
}

// GetAuxInfo returns the aux info, or nil.
func (m *WaitStateInfo) GetAuxInfo() *WaitStateAuxInfo {
	if m != nil {
		return m.AuxInfo
	}
	return nil
}

// MutableMetadata returns the metadata, allocating it if necessary.
func (m *WaitStateInfo) MutableMetadata() *WaitStateMetadata {
	if m.Metadata == nil {
		m.Metadata = &WaitStateMetadata{}
	}
	return m.Metadata
}

// MutableAuxInfo returns the aux info, allocating it if necessary.
func (m *WaitStateInfo) MutableAuxInfo() *WaitStateAuxInfo {
	if m.AuxInfo == nil {
		m.AuxInfo = &WaitStateAuxInfo{}
	}
	return m.AuxInfo
}

func init() {
	proto.RegisterType((*WaitStateMetadata)(nil), "cockroach.util.ash.WaitStateMetadata")
	proto.RegisterType((*WaitStateAuxInfo)(nil), "cockroach.util.ash.WaitStateAuxInfo")
	proto.RegisterType((*WaitStateInfo)(nil), "cockroach.util.ash.WaitStateInfo")
}

// MessageToJSONString converts a wait-state message into a JSON string. The
// emitDefaults flag dictates whether fields with zero values are rendered or
// not.
func MessageToJSONString(msg proto.Message, emitDefaults bool) (string, error) {
	m := jsonpb.Marshaler{EmitDefaults: emitDefaults}
	s, err := m.MarshalToString(msg)
	if err != nil {
		return "", errors.Wrapf(err, "converting %s to JSON string", proto.MessageName(msg))
	}
	return s, nil
}
