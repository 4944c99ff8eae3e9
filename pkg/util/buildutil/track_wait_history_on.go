// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

//go:build track_wait_history

package buildutil

// TrackWaitHistory is enabled when built with the track_wait_history build
// tag. Wait-state containers then default to recording every status they
// pass through, and serialized states carry the status name.
const TrackWaitHistory = true
