package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parhist/internal/histogram"
)

func TestResultPipe_RoundTrip(t *testing.T) {
	p, err := NewResultPipe()
	require.NoError(t, err)

	want := histogram.Count([]byte("AbcAbc"))
	payload, err := want.MarshalBinary()
	require.NoError(t, err)

	_, err = p.WriteEnd().Write(payload)
	require.NoError(t, err)
	require.NoError(t, p.CloseWrite())

	got, ok, err := p.Drain(time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, p.CloseRead())
}

func TestResultPipe_ClosedWithoutDataIsNotAnError(t *testing.T) {
	p, err := NewResultPipe()
	require.NoError(t, err)
	require.NoError(t, p.CloseWrite())

	_, ok, err := p.Drain(time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "empty pipe must drain as 'no usable data'")

	require.NoError(t, p.CloseRead())
}

func TestResultPipe_ShortPayloadIsNotAnError(t *testing.T) {
	p, err := NewResultPipe()
	require.NoError(t, err)

	_, err = p.WriteEnd().Write(make([]byte, histogram.BinarySize/2))
	require.NoError(t, err)
	require.NoError(t, p.CloseWrite())

	_, ok, err := p.Drain(time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.CloseRead())
}

func TestResultPipe_DrainIsBounded(t *testing.T) {
	p, err := NewResultPipe()
	require.NoError(t, err)

	// Write end stays open with nothing transmitted: the drain must give up
	// at the deadline instead of blocking.
	start := time.Now()
	_, ok, err := p.Drain(50 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.NoError(t, p.CloseWrite())
	require.NoError(t, p.CloseRead())
}

func TestResultPipe_EndpointsCloseExactlyOnce(t *testing.T) {
	p, err := NewResultPipe()
	require.NoError(t, err)

	require.NoError(t, p.CloseWrite())
	assert.Error(t, p.CloseWrite(), "second close of the write end must be reported")

	require.NoError(t, p.CloseRead())
	assert.Error(t, p.CloseRead(), "second close of the read end must be reported")

	_, _, err = p.Drain(time.Millisecond)
	assert.Error(t, err, "draining a closed read end must be reported")
}
