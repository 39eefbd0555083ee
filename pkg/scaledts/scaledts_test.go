package scaledts_test

import (
	"testing"

	"github.com/barvaux/gorohc/pkg/scaledts"
	"github.com/stretchr/testify/assert"
)

func TestLinearTSLearnsStrideAndBecomesDeducible(t *testing.T) {
	c := scaledts.New(4)
	sn := uint16(0)
	ts := uint32(0)

	for i := 0; i < 10; i++ {
		c.Update(ts, sn)
		sn++
		ts += 160
	}

	assert.Equal(t, scaledts.SendScaled, c.State())
	assert.Equal(t, uint32(160), c.Stride())
	assert.True(t, c.IsDeducible())
}

func TestConstantTSStaysInInitTS(t *testing.T) {
	c := scaledts.New(4)
	for i := 0; i < 5; i++ {
		c.Update(1000, uint16(i))
	}
	assert.Equal(t, scaledts.InitTS, c.State())
}

func TestUnscaleRoundTrip(t *testing.T) {
	c := scaledts.New(4)
	sn := uint16(0)
	ts := uint32(1000)
	for i := 0; i < 8; i++ {
		c.Update(ts, sn)
		sn++
		ts += 320
	}
	assert.Equal(t, scaledts.SendScaled, c.State())

	// ts has already been advanced past the last Update'd timestamp.
	got := scaledts.Unscale(c.Scaled(), c.Stride(), c.Offset())
	assert.Equal(t, ts-320, got)
}

func TestMinBitsShrinksOnceWindowPopulated(t *testing.T) {
	c := scaledts.New(4)
	sn := uint16(0)
	ts := uint32(0)
	for i := 0; i < 10; i++ {
		c.Update(ts, sn)
		sn++
		ts += 160
	}
	k, ok := c.MinBits(c.Scaled())
	assert.True(t, ok)
	assert.LessOrEqual(t, k, uint(32))
}

func TestDecoderDeduceFromSN(t *testing.T) {
	d := scaledts.NewDecoder(4)
	d.SetStride(160, 0)

	first := d.DeduceFromSN(0, 1)
	second := d.DeduceFromSN(1, 2)
	assert.Equal(t, first+160, second)
}
