package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/agrorain/internal/rainfall"
)

type fakeProber struct {
	kind  rainfall.BackendKind
	err   error
	calls atomic.Int32
}

func (p *fakeProber) Backend() rainfall.BackendKind { return p.kind }

func (p *fakeProber) Probe(context.Context) error {
	p.calls.Add(1)
	return p.err
}

func TestStart_LocalBackendSchedulesNothing(t *testing.T) {
	p := &fakeProber{kind: rainfall.BackendLocal}
	s := New(p, 10*time.Millisecond, nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.False(t, s.Running())
	assert.Zero(t, p.calls.Load())
}

func TestStart_RemoteBackendProbes(t *testing.T) {
	p := &fakeProber{kind: rainfall.BackendRemote, err: errors.New("unreachable")}
	s := New(p, 20*time.Millisecond, nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.True(t, s.Running())
	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
