package wlsb_test

import (
	"testing"

	"github.com/barvaux/gorohc/pkg/wlsb"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRoundTripSN(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := wlsb.New(4, 16)
		var sn uint16
		var v uint32 = rapid.Uint32Range(0, 0xffff).Draw(t, "v0")
		w.Add(v, sn)

		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			delta := rapid.Uint32Range(0, 2000).Draw(t, "delta")
			next := (v + delta) & 0xffff
			sn++

			k, ok := w.MinK(next, wlsb.ShiftSN)
			assert.True(t, ok)

			mask := uint32(1)<<k - 1
			if k == 32 {
				mask = ^uint32(0)
			}
			m := next & mask
			got, ok := wlsb.Decode(v, k, m, wlsb.ShiftSN, 16)
			assert.True(t, ok)
			assert.Equal(t, next, got)

			w.Add(next, sn)
			v = next
		}
	})
}

func TestDecodeFailsOutsideInterval(t *testing.T) {
	// An interval wider than the 16-bit field cannot be resolved.
	_, ok := wlsb.Decode(100, 17, 0, wlsb.ShiftSN, 16)
	assert.False(t, ok)

	// k=0 always resolves to the reference itself.
	got, ok := wlsb.Decode(100, 0, 0, wlsb.ShiftSN, 16)
	assert.True(t, ok)
	assert.Equal(t, uint32(100), got)
}

func TestAckPrunesOldEntries(t *testing.T) {
	w := wlsb.New(4, 16)
	w.Add(1, 1)
	w.Add(2, 2)
	w.Add(3, 3)
	assert.Equal(t, 3, w.Len())
	w.Ack(2)
	assert.Equal(t, 1, w.Len())
}

func TestWindowEvictsOldest(t *testing.T) {
	w := wlsb.New(2, 16)
	w.Add(1, 1)
	w.Add(2, 2)
	w.Add(3, 3)
	assert.Equal(t, 2, w.Len())
}

func TestEmptyBeforeFirstAdd(t *testing.T) {
	w := wlsb.New(4, 16)
	assert.True(t, w.Empty())
	w.Add(1, 1)
	assert.False(t, w.Empty())
}
