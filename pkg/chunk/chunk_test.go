package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/gocodecs/internal/codecerr"
)

func TestCopyToRoundTrips(t *testing.T) {
	c := New(Init{Type: TypeKey, Timestamp: 1000, Data: []byte("payload-bytes")})
	dest := make([]byte, c.ByteLength())
	n, err := c.CopyTo(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload-bytes", string(dest[:n]))
}

func TestCopyToTooSmallDestination(t *testing.T) {
	c := New(Init{Type: TypeDelta, Data: []byte("0123456789")})
	_, err := c.CopyTo(make([]byte, 4))
	require.Error(t, err)
	assert.True(t, codecerr.Is(err, codecerr.KindRangeError))
}

func TestPayloadIsCopiedNotAliased(t *testing.T) {
	src := []byte("abc")
	c := New(Init{Type: TypeKey, Data: src})
	src[0] = 'z'
	dest := make([]byte, c.ByteLength())
	_, _ = c.CopyTo(dest)
	assert.Equal(t, "abc", string(dest))
}

func TestDurationNilVsZeroAreDistinct(t *testing.T) {
	zero := int64(0)
	withZero := New(Init{Type: TypeKey, Duration: &zero})
	withNil := New(Init{Type: TypeKey})

	require.NotNil(t, withZero.Duration())
	assert.Equal(t, int64(0), *withZero.Duration())
	assert.Nil(t, withNil.Duration())
}
