// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package ash

import (
	"context"
	"encoding/binary"
	"math"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/ash/pkg/util/ash/ashpb"
	"github.com/cockroachdb/ash/pkg/util/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// ErrMalformedAddress is returned (possibly wrapped) when a client address
// cannot be parsed.
var ErrMalformedAddress = errors.New("malformed client address")

// Metadata correlates a wait state with the request, session and client it
// belongs to. The zero value of every field means "not set".
type Metadata struct {
	// TopLevelRequestID and TopLevelNodeID hold exactly two elements when
	// set.
	TopLevelRequestID []uint64
	TopLevelNodeID    []uint64
	QueryID           int64
	CurrentRequestID  int64
	// ClientNodeHost is an IPv4 address in host byte order.
	ClientNodeHost uint32
	ClientNodePort uint16
}

// UpdateFrom fills in the blanks: every field set in other overwrites the
// corresponding field of m, and fields unset in other are left alone.
func (m *Metadata) UpdateFrom(other Metadata) {
	if len(other.TopLevelRequestID) > 0 {
		m.TopLevelRequestID = slices.Clone(other.TopLevelRequestID)
	}
	if len(other.TopLevelNodeID) > 0 {
		m.TopLevelNodeID = slices.Clone(other.TopLevelNodeID)
	}
	if other.QueryID != 0 {
		m.QueryID = other.QueryID
	}
	if other.CurrentRequestID != 0 {
		m.CurrentRequestID = other.CurrentRequestID
	}
	if other.ClientNodeHost != 0 {
		m.ClientNodeHost = other.ClientNodeHost
	}
	if other.ClientNodePort != 0 {
		m.ClientNodePort = other.ClientNodePort
	}
}

// clone returns a copy of m that shares no memory with it.
func (m Metadata) clone() Metadata {
	m.TopLevelRequestID = slices.Clone(m.TopLevelRequestID)
	m.TopLevelNodeID = slices.Clone(m.TopLevelNodeID)
	return m
}

// SetClientNodeIP parses an "a.b.c.d:port" endpoint into ClientNodeHost and
// ClientNodePort. The endpoint is split at the first colon. On error m is
// left unchanged and the returned error is marked with ErrMalformedAddress.
func (m *Metadata) SetClientNodeIP(endpoint string) error {
	host, port, ok := strings.Cut(endpoint, ":")
	if !ok {
		return errors.Wrapf(ErrMalformedAddress, "%q: missing port", endpoint)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "parsing client address %q", endpoint), ErrMalformedAddress)
	}
	if !addr.Is4() {
		return errors.Wrapf(ErrMalformedAddress, "%q: not an IPv4 address", endpoint)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "parsing client port %q", endpoint), ErrMalformedAddress)
	}
	ip4 := addr.As4()
	m.ClientNodeHost = binary.BigEndian.Uint32(ip4[:])
	m.ClientNodePort = uint16(p)
	return nil
}

// ClientNodeAddr renders the client host and port as "a.b.c.d:port".
func (m Metadata) ClientNodeAddr() string {
	var ip4 [4]byte
	binary.BigEndian.PutUint32(ip4[:], m.ClientNodeHost)
	return netip.AddrPortFrom(netip.AddrFrom4(ip4), m.ClientNodePort).String()
}

// ToProto writes the set fields of m into pb. Unset fields are not written,
// and the repeated ids are only written when they hold exactly two values.
func (m Metadata) ToProto(pb *ashpb.WaitStateMetadata) {
	if len(m.TopLevelRequestID) == 2 {
		pb.TopLevelRequestID = slices.Clone(m.TopLevelRequestID)
	}
	if len(m.TopLevelNodeID) == 2 {
		pb.TopLevelNodeID = slices.Clone(m.TopLevelNodeID)
	}
	if m.QueryID != 0 {
		pb.QueryID = m.QueryID
	}
	if m.CurrentRequestID != 0 {
		pb.CurrentRequestID = m.CurrentRequestID
	}
	if m.ClientNodeHost != 0 {
		pb.ClientNodeHost = m.ClientNodeHost
	}
	if m.ClientNodePort != 0 {
		pb.ClientNodePort = uint32(m.ClientNodePort)
	}
}

// MetadataFromProto converts the wire representation into a Metadata.
func MetadataFromProto(pb *ashpb.WaitStateMetadata) Metadata {
	if pb == nil {
		return Metadata{}
	}
	return Metadata{
		TopLevelRequestID: slices.Clone(pb.TopLevelRequestID),
		TopLevelNodeID:    slices.Clone(pb.TopLevelNodeID),
		QueryID:           pb.QueryID,
		CurrentRequestID:  pb.CurrentRequestID,
		ClientNodeHost:    pb.ClientNodeHost,
		ClientNodePort:    portFromProto(pb.ClientNodePort),
	}
}

// UpdateFromProto merges the wire representation into m. Fields absent
// (zero) on the wire leave the existing value in place.
func (m *Metadata) UpdateFromProto(pb *ashpb.WaitStateMetadata) {
	m.UpdateFrom(MetadataFromProto(pb))
}

var portOverflowLogEvery = log.Every(10 * time.Second)

// portFromProto narrows a wire port to 16 bits. Out of range ports cannot
// be represented and are treated as unset.
func portFromProto(p uint32) uint16 {
	if p > math.MaxUint16 {
		if portOverflowLogEvery.ShouldLog() {
			log.Warningf(context.TODO(), "ignoring out of range client port %d", p)
		}
		return 0
	}
	return uint16(p)
}

// String implements fmt.Stringer.
func (m Metadata) String() string {
	return redact.StringWithoutMarkers(m)
}

// SafeFormat implements redact.SafeFormatter. The client address is
// considered sensitive.
func (m Metadata) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("{top_level_node_id: %v, top_level_request_id: %v, query_id: %d, current_request_id: %d, client_node_ip: %s}",
		redact.Safe(m.TopLevelNodeID), redact.Safe(m.TopLevelRequestID),
		redact.Safe(m.QueryID), redact.Safe(m.CurrentRequestID), m.ClientNodeAddr())
}

// AuxInfo identifies the resource and method a wait state is associated
// with. Ids are opaque; the empty string means "not set".
type AuxInfo struct {
	TabletID string
	TableID  string
	Method   string
}

// UpdateFrom overwrites the fields of a that are set in other.
func (a *AuxInfo) UpdateFrom(other AuxInfo) {
	if other.TabletID != "" {
		a.TabletID = other.TabletID
	}
	if other.TableID != "" {
		a.TableID = other.TableID
	}
	if other.Method != "" {
		a.Method = other.Method
	}
}

// ToProto writes a into pb.
func (a AuxInfo) ToProto(pb *ashpb.WaitStateAuxInfo) {
	pb.TabletID = a.TabletID
	pb.TableID = a.TableID
	pb.Method = a.Method
}

// AuxInfoFromProto converts the wire representation into an AuxInfo.
func AuxInfoFromProto(pb *ashpb.WaitStateAuxInfo) AuxInfo {
	if pb == nil {
		return AuxInfo{}
	}
	return AuxInfo{TabletID: pb.TabletID, TableID: pb.TableID, Method: pb.Method}
}

// UpdateFromProto merges the wire representation into a.
func (a *AuxInfo) UpdateFromProto(pb *ashpb.WaitStateAuxInfo) {
	a.UpdateFrom(AuxInfoFromProto(pb))
}

// String implements fmt.Stringer.
func (a AuxInfo) String() string {
	return redact.StringWithoutMarkers(a)
}

// SafeFormat implements redact.SafeFormatter.
func (a AuxInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("{table_id: %s, tablet_id: %s, method: %s}",
		redact.SafeString(a.TableID), redact.SafeString(a.TabletID), redact.SafeString(a.Method))
}
