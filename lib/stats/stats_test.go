package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	s := New()
	before := s.Snapshot()

	RecordUpload(4096)
	RecordPaint()
	RecordPresent()
	s.SetBackings(2)

	after := s.Snapshot()
	assert.Equal(t, before.TextureUpload+4096, after.TextureUpload)
	assert.Equal(t, before.Paints+1, after.Paints)
	assert.Equal(t, before.Presents+1, after.Presents)
	assert.Equal(t, 2, after.Backings)
	assert.Greater(t, after.Uptime, 0.0)
}
