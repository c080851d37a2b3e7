package replay

import (
	"testing"

	"github.com/OCAP2/luxreplay/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_Scrubbing(t *testing.T) {
	s, err := NewStoreFromFrames(framesUpTo(10))
	require.NoError(t, err)
	c := NewCursor(s)

	assert.Equal(t, 0, c.Turn())
	assert.False(t, c.Prev(), "cannot move before turn 0")
	assert.Equal(t, 0, c.Turn())

	assert.True(t, c.Next())
	assert.True(t, c.Next())
	assert.Equal(t, 2, c.Turn())

	assert.True(t, c.Seek(7))
	assert.True(t, c.Prev())
	assert.Equal(t, 6, c.Turn())

	assert.True(t, c.Last())
	assert.Equal(t, 10, c.Turn())
	assert.False(t, c.Next())
	assert.Equal(t, 10, c.Turn())

	assert.True(t, c.First())
	f, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, 0, f.Turn)
	assert.Same(t, s, c.Store())
}

func TestCursor_ProgressiveStore(t *testing.T) {
	s := NewStore(10)
	c := NewCursor(s)

	_, ok := c.Current()
	assert.False(t, ok)
	assert.False(t, c.Seek(3), "turn 3 is not generated yet")
	assert.False(t, c.Last())

	for i := 0; i <= 3; i++ {
		require.NoError(t, s.append(&core.Frame{Turn: i}))
	}
	assert.True(t, c.Seek(3))
	assert.False(t, c.Seek(4))
	assert.Equal(t, 3, c.Turn())
}
