// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxbridgeai/pkg/commons"
)

type fakeHandle struct {
	id     string
	closed bool
}

func (f *fakeHandle) CallID() string { return f.id }
func (f *fakeHandle) Closed() bool   { return f.closed }

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	logger, err := commons.NewApplicationLoggerWithLevel("error")
	require.NoError(t, err)
	r := New(logger)
	t.Cleanup(r.Close)
	return r
}

func TestRegistry_AddGetRemove(t *testing.T) {
	r := newTestRegistry(t)
	h := &fakeHandle{id: "conv-1"}

	r.Add(h)
	got, ok := r.Get("conv-1")
	require.True(t, ok)
	assert.Same(t, h, got)
	assert.Equal(t, 1, r.Len())

	_, ok = r.Get("conv-2")
	assert.False(t, ok)

	r.Remove("conv-1")
	_, ok = r.Get("conv-1")
	assert.False(t, ok)
}

func TestRegistry_SweepRemovesClosed(t *testing.T) {
	r := newTestRegistry(t)
	live := &fakeHandle{id: "conv-live"}
	dead := &fakeHandle{id: "conv-dead", closed: true}
	r.Add(live)
	r.Add(dead)

	r.Sweep()

	_, ok := r.Get("conv-live")
	assert.True(t, ok)
	_, ok = r.Get("conv-dead")
	assert.False(t, ok)
}
