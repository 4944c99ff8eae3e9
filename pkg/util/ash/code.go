// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package ash

import (
	"fmt"

	"github.com/cockroachdb/ash/pkg/util/syncutil"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Code is an opaque wait status. The concrete codes are owned by the
// components that report them; this package only relies on the bit layout
// below and on the zero value meaning Unused.
//
// The top nibble identifies the component reporting the status and the top
// byte identifies the class of wait within that component:
//
//	0xEF000001
//	  ||`------ event within the class
//	  |`------- class
//	  `-------- component
type Code uint32

// Unused is the status of a container that has not been assigned one yet.
const Unused Code = 0

const (
	// ComponentMask selects the component bits of a Code.
	ComponentMask Code = 0xF0000000
	// ClassMask selects the component and class bits of a Code.
	ClassMask Code = 0xFF000000
)

// Component returns the component bits of the code.
func (c Code) Component() Code {
	return c & ComponentMask
}

// Class returns the component and class bits of the code.
func (c Code) Class() Code {
	return c & ClassMask
}

var codeNames = struct {
	syncutil.RWMutex
	m map[Code]string
}{
	m: map[Code]string{Unused: "Unused"},
}

// RegisterCodeName associates a human readable name with a code. It is
// meant to be called from init functions of the packages defining codes.
// Registering a different name for an already named code panics.
func RegisterCodeName(c Code, name string) {
	codeNames.Lock()
	defer codeNames.Unlock()
	if existing, ok := codeNames.m[c]; ok && existing != name {
		panic(errors.AssertionFailedf(
			"wait status %s already registered as %q", redact.Safe(uint32(c)), redact.Safe(existing)))
	}
	codeNames.m[c] = name
}

// String implements fmt.Stringer. Codes without a registered name render as
// hexadecimal.
func (c Code) String() string {
	codeNames.RLock()
	name, ok := codeNames.m[c]
	codeNames.RUnlock()
	if ok {
		return name
	}
	return fmt.Sprintf("0x%08X", uint32(c))
}

// SafeValue implements redact.SafeValue.
func (Code) SafeValue() {}

var _ redact.SafeValue = Code(0)
