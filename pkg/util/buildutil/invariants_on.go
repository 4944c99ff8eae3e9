// Copyright 2023 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

//go:build invariants || race

package buildutil

// Invariants is enabled when built with the invariants or race build tags. It
// enables assertions that are too expensive for production builds, such as
// checking that a goroutine's wait-state slot is only written by its owner.
const Invariants = true
