package rohccrc_test

import (
	"fmt"
	"testing"

	"github.com/barvaux/gorohc/pkg/rohccrc"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSingleBitFlipAlwaysRejects(t *testing.T) {
	for _, w := range []rohccrc.Width{rohccrc.Width3, rohccrc.Width7, rohccrc.Width8} {
		w := w
		t.Run(fmt.Sprintf("width%d", w), func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				data := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "data")
				e := rohccrc.New(w)
				want := e.Compute(data)

				idx := rapid.IntRange(0, len(data)-1).Draw(t, "idx")
				bit := rapid.IntRange(0, 7).Draw(t, "bit")
				flipped := append([]byte(nil), data...)
				flipped[idx] ^= 1 << uint(bit)

				assert.False(t, e.Verify(flipped, want))
			})
		})
	}
}

func TestComputeDeterministic(t *testing.T) {
	e := rohccrc.New(rohccrc.Width8)
	data := []byte{0x45, 0x00, 0x00, 0x54, 0x00, 0x00, 0x40, 0x00}
	a := e.Compute(data)
	b := e.Compute(data)
	assert.Equal(t, a, b)
	assert.True(t, e.Verify(data, a))
}

func TestWidthsAreDistinctEngines(t *testing.T) {
	assert.NotSame(t, rohccrc.New(rohccrc.Width3), rohccrc.New(rohccrc.Width7))
	assert.Equal(t, rohccrc.New(rohccrc.Width3), rohccrc.New(rohccrc.Width3))
}
