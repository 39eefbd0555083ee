package ipview_test

import (
	"encoding/hex"
	"testing"

	"github.com/barvaux/gorohc/pkg/ipview"
	"github.com/stretchr/testify/assert"
)

// echoPacketHex is the literal 84-byte IPv4/ICMP echo packet from spec
// end-to-end scenario 1.
const echoPacketHex = "450000540000400040019352c0a81301c0a813050800e9c29b4200016615a645779b040008090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f202122232425262728292a2b2c2d2e2f3031323334353637"

func mustDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	assert.NoError(t, err)
	return b
}

func TestParseV4Echo(t *testing.T) {
	b := mustDecode(t, echoPacketHex)
	assert.Len(t, b, 84)

	v := ipview.Parse(b)
	assert.Equal(t, ipview.V4, v.Kind())
	assert.Equal(t, byte(64), v.TTL())
	assert.Equal(t, 1, v.GetProtocol())
	assert.Equal(t, uint16(0), v.IPID())
	assert.True(t, v.DF())

	src, dst := v.Addrs()
	assert.Equal(t, []byte{0xc0, 0xa8, 0x13, 0x01}, src)
	assert.Equal(t, []byte{0xc0, 0xa8, 0x13, 0x05}, dst)
}

func TestParseTooShortIsMalformed(t *testing.T) {
	v := ipview.Parse([]byte{0x45, 0x00, 0x00, 0x14})
	assert.Equal(t, ipview.MalformedV4, v.Kind())
}

func TestParseTotalLengthMismatchIsMalformed(t *testing.T) {
	b := mustDecode(t, echoPacketHex)
	b[2] = 0xff // corrupt total length high byte
	v := ipview.Parse(b)
	assert.Equal(t, ipview.MalformedV4, v.Kind())
}

func TestParseUnknownVersion(t *testing.T) {
	v := ipview.Parse([]byte{0x10, 0x00})
	assert.Equal(t, ipview.Unknown, v.Kind())
}

func TestFragmentDetected(t *testing.T) {
	b := mustDecode(t, echoPacketHex)
	b[6] |= 0x00
	b[7] = 0x01 // nonzero fragment offset
	v := ipview.Parse(b)
	assert.True(t, v.IsFragment())
}

func TestV6TooShortIsMalformed(t *testing.T) {
	v := ipview.Parse([]byte{0x60, 0x00, 0x00, 0x00})
	assert.Equal(t, ipview.MalformedV6, v.Kind())
}

func TestAccessorPanicsOnWrongVariant(t *testing.T) {
	v := ipview.Parse([]byte{0x10, 0x00})
	assert.Panics(t, func() { v.TTL() })
}

func TestDFAccessorPanicsOnV6(t *testing.T) {
	b := make([]byte, 40)
	b[0] = 0x60
	b[6] = 17 // next header UDP: no extension header to walk
	v := ipview.Parse(b)
	assert.Equal(t, ipview.V6, v.Kind())
	assert.Panics(t, func() { v.DF() })
}
