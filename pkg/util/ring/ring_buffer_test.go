// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferAddRemove(t *testing.T) {
	var b Buffer[int]
	require.Equal(t, 0, b.Len())
	require.Nil(t, b.Slice())

	for i := 0; i < 5; i++ {
		b.AddLast(i)
	}
	require.Equal(t, 5, b.Len())
	require.Equal(t, 0, b.GetFirst())
	require.Equal(t, 4, b.GetLast())
	require.Equal(t, []int{0, 1, 2, 3, 4}, b.Slice())

	b.RemoveFirst()
	b.RemoveFirst()
	require.Equal(t, []int{2, 3, 4}, b.Slice())

	// Wrap around the end of the underlying slice before growing again.
	for i := 5; i < 10; i++ {
		b.AddLast(i)
	}
	require.Equal(t, []int{2, 3, 4, 5, 6, 7, 8, 9}, b.Slice())
	require.Equal(t, 5, b.Get(3))

	b.Reset()
	require.Equal(t, 0, b.Len())
	require.Panics(t, func() { b.RemoveFirst() })
	require.Panics(t, func() { b.GetFirst() })
}

func TestBufferAddLastEvicting(t *testing.T) {
	var b Buffer[string]
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		b.AddLastEvicting(s, 3)
	}
	require.Equal(t, []string{"c", "d", "e"}, b.Slice())
	require.Equal(t, 3, b.Len())

	var unbounded Buffer[string]
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		unbounded.AddLastEvicting(s, 0)
	}
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, unbounded.Slice())
}

func TestBufferReserve(t *testing.T) {
	var b Buffer[int]
	b.AddLast(1)
	b.AddLast(2)
	b.Reserve(10)
	require.Equal(t, 10, b.Cap())
	require.Equal(t, []int{1, 2}, b.Slice())
	b.AddLast(3)
	require.Equal(t, []int{1, 2, 3}, b.Slice())
	require.Panics(t, func() { b.Reserve(1) })
}
