package utils

import (
	"image/color"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestColour(t *testing.T) {
	assert.True(t, ColourValidate("#ff000080"))
	assert.False(t, ColourValidate("#ff0000"))
	assert.False(t, ColourValidate("red"))

	c := ColourParse("#ff000080")
	assert.Equal(t, color.RGBA{255, 0, 0, 128}, c)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 128.0 / 255}, ColourVec(c))
}

func TestDeltaTimer(t *testing.T) {
	var d DeltaTimer
	assert.Zero(t, d.Next())
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, d.Next(), 2*time.Millisecond)
}
