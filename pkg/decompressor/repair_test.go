package decompressor

import (
	"testing"

	"github.com/barvaux/gorohc/pkg/ipview"
	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/barvaux/gorohc/pkg/rohccrc"
	"github.com/barvaux/gorohc/pkg/rohcwire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func udpStaticDynamic(sn uint16) (profile.StaticFields, profile.DynamicFields) {
	s := profile.StaticFields{
		Version:  4,
		Protocol: 17,
		SrcAddr:  []byte{10, 0, 0, 1},
		DstAddr:  []byte{10, 0, 0, 2},
		SrcPort:  1000,
		DstPort:  2000,
	}
	d := profile.DynamicFields{TTL: 64, IPID: sn}
	return s, d
}

func TestAttemptRepairRecoversSNOneWindowBelowActual(t *testing.T) {
	ctx := NewContext(0, profile.UDPProfile{}, Optimistic, 4)
	const actualSN = uint16(37)
	s, d := udpStaticDynamic(actualSN)
	app := []byte("payload")

	candidate := reconstruct(profile.UDP, s, d, app)
	v := ipview.Parse(candidate)
	require.Equal(t, ipview.V4, v.Kind())
	crc := rohccrc.New(rohccrc.Width3).Compute(rohccrc.HeaderFields(profile.UDP, v))

	// dec carries an SN exactly one UO-0 LSB window (16, lsbK=4) below
	// the value the CRC byte actually attests to, as if the reference
	// the LSBs were resolved against had slipped by a full window.
	wrongS, wrongD := udpStaticDynamic(actualSN - 16)
	dec := decoded{
		kind: rohcwire.KindUO0, static: wrongS, dynamic: wrongD,
		sn: actualSN - 16, full: app, crcByte: crc, crcWidth: rohccrc.Width3, lsbK: 4,
	}

	gotV, gotSN, ok := attemptRepair(profile.UDP, ctx, dec)
	require.True(t, ok)
	assert.Equal(t, actualSN, gotSN)
	assert.Equal(t, candidate, gotV.Raw())
}

func TestAttemptRepairFailsWhenCRCDoesNotMatchAnyNearbySN(t *testing.T) {
	ctx := NewContext(0, profile.UDPProfile{}, Optimistic, 4)
	s, d := udpStaticDynamic(100)
	dec := decoded{
		kind: rohcwire.KindUO0, static: s, dynamic: d,
		sn: 100, full: []byte("payload"), crcByte: 0x5, crcWidth: rohccrc.Width3, lsbK: 4,
	}

	_, _, ok := attemptRepair(profile.UDP, ctx, dec)
	assert.False(t, ok, "a CRC byte that matches none of the nearby SN hypotheses must not be repaired")
}

func TestAttemptRepairRefusesWideLSBFields(t *testing.T) {
	ctx := NewContext(0, profile.UDPProfile{}, Optimistic, 4)
	s, d := udpStaticDynamic(100)
	dec := decoded{
		kind: rohcwire.KindIR, static: s, dynamic: d,
		sn: 100, full: []byte("payload"), crcByte: 0x5, crcWidth: rohccrc.Width8, lsbK: 16,
	}

	_, _, ok := attemptRepair(profile.UDP, ctx, dec)
	assert.False(t, ok, "an IR packet already carries SN outright, so there is no wrap hypothesis to try")
}
