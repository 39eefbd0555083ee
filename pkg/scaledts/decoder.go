package scaledts

import "github.com/barvaux/gorohc/pkg/wlsb"

// Decoder is the decompressor-side mirror of Context: it has no
// TS_STRIDE-learning state machine of its own (the compressor's INIT_TS/
// INIT_STRIDE/SEND_SCALED decisions are carried on the wire as explicit
// TS_STRIDE fields), it only needs to decode whatever TS_SCALED bits
// arrive against its own W-LSB window and unscale them.
type Decoder struct {
	tsStride uint32
	tsOffset uint32
	tsScaled uint32
	window   *wlsb.Window
}

// NewDecoder returns an empty decoder-side scaled-TS context.
func NewDecoder(windowWidth int) *Decoder {
	return &Decoder{window: wlsb.New(windowWidth, 32)}
}

// SetStride installs a freshly-received TS_STRIDE/TS_OFFSET pair, as
// carried by a UOR-2 packet in TS_SCALED mode.
func (d *Decoder) SetStride(stride, offset uint32) {
	d.tsStride = stride
	d.tsOffset = offset
}

// Stride returns the currently known TS_STRIDE.
func (d *Decoder) Stride() uint32 { return d.tsStride }

// DecodeScaled resolves the field bits m (k of them) against the window
// using reference sn, reconstructs TS_SCALED, and returns the unscaled
// timestamp.
func (d *Decoder) DecodeScaled(k uint, m uint32, sn uint16) (ts uint32, ok bool) {
	if d.window.Empty() {
		return 0, false
	}
	scaled, ok := wlsb.Decode(d.tsScaled, k, m, wlsb.ShiftTS(k), 32)
	if !ok {
		return 0, false
	}
	d.tsScaled = scaled
	d.window.Add(scaled, sn)
	return Unscale(scaled, d.tsStride, d.tsOffset), true
}

// DeduceFromSN reconstructs TS_SCALED (and the unscaled timestamp) purely
// from an SN delta, for the case where the compressor signaled TS is
// deducible and sent zero TS bits.
func (d *Decoder) DeduceFromSN(snDelta uint32, sn uint16) uint32 {
	d.tsScaled += snDelta
	d.window.Add(d.tsScaled, sn)
	return Unscale(d.tsScaled, d.tsStride, d.tsOffset)
}
