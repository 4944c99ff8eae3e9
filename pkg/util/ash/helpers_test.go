// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package ash

// Statuses used by the tests. Real statuses are defined by the components
// reporting them.
const (
	testS0   Code = 0xEF000000
	testS1   Code = 0xEF000001
	testS2   Code = 0xEF000002
	testS3   Code = 0xEE000003
	testBusy Code = 0xEC000001
)

var testCodesByName = map[string]Code{
	"Unused": Unused,
	"S0":     testS0,
	"S1":     testS1,
	"S2":     testS2,
	"S3":     testS3,
	"Busy":   testBusy,
}

func init() {
	for name, c := range testCodesByName {
		RegisterCodeName(c, name)
	}
}

// historyOptions tracks every status, regardless of build tags.
var historyOptions = Options{TrackHistory: true}
