package decompressor

import (
	"testing"

	"github.com/barvaux/gorohc/pkg/profile"
	"github.com/stretchr/testify/assert"
)

func TestRecordCRCDemotesFCToSCAfterRepeatedFailures(t *testing.T) {
	ctx := NewContext(0, nil, Optimistic, 4)
	ctx.state = FC

	for i := 0; i < DefaultK1; i++ {
		ctx.recordCRC(false)
	}
	assert.Equal(t, SC, ctx.state)
}

func TestRecordCRCDemotesSCToNCAfterRepeatedFailures(t *testing.T) {
	ctx := NewContext(0, nil, Optimistic, 4)
	ctx.state = SC

	for i := 0; i < DefaultK2; i++ {
		ctx.recordCRC(false)
	}
	assert.Equal(t, NC, ctx.state)
}

func TestRecordCRCStaysInFCUnderOccasionalFailures(t *testing.T) {
	ctx := NewContext(0, nil, Optimistic, 4)
	ctx.state = FC

	for i := 0; i < DefaultN1; i++ {
		ctx.recordCRC(true)
	}
	ctx.recordCRC(false)
	assert.Equal(t, FC, ctx.state, "a single failure inside a mostly-clean window must not demote")
}

func TestOnIRSuccessPromotesToFCFromAnyState(t *testing.T) {
	ctx := NewContext(0, nil, Optimistic, 4)
	ctx.state = NC
	ctx.onIRSuccess()
	assert.Equal(t, FC, ctx.state)
}

func TestOnIRDynSuccessOnlyPromotesFromSC(t *testing.T) {
	ctx := NewContext(0, nil, Optimistic, 4)
	ctx.state = NC
	ctx.onIRDynSuccess()
	assert.Equal(t, NC, ctx.state, "IR-DYN must not promote out of NC")

	ctx.state = SC
	ctx.onIRDynSuccess()
	assert.Equal(t, FC, ctx.state)
}

func TestCommitRecordsSmallGapsAsLoss(t *testing.T) {
	ctx := NewContext(0, nil, Optimistic, 4)
	ctx.commit(profile.StaticFields{}, profile.DynamicFields{}, 10)
	ctx.commit(profile.StaticFields{}, profile.DynamicFields{}, 14)

	lost := ctx.drainLoss()
	assert.Equal(t, []uint16{11, 12, 13}, lost)
	assert.Equal(t, uint64(3), ctx.Stats().Lost)
}

func TestCommitIgnoresReorderedOrDuplicateSN(t *testing.T) {
	ctx := NewContext(0, nil, Optimistic, 4)
	ctx.commit(profile.StaticFields{}, profile.DynamicFields{}, 10)
	ctx.commit(profile.StaticFields{}, profile.DynamicFields{}, 10) // duplicate, not a gap forward

	assert.Empty(t, ctx.drainLoss())
}

func TestCommitBoundsHugeGapsRatherThanScanning(t *testing.T) {
	ctx := NewContext(0, nil, Optimistic, 4)
	ctx.commit(profile.StaticFields{}, profile.DynamicFields{}, 0)
	ctx.commit(profile.StaticFields{}, profile.DynamicFields{}, 40000) // far beyond maxGapReport

	assert.Empty(t, ctx.drainLoss(), "a gap larger than maxGapReport must be silently skipped, not enumerated")
}

func TestDrainLossClearsPending(t *testing.T) {
	ctx := NewContext(0, nil, Optimistic, 4)
	ctx.commit(profile.StaticFields{}, profile.DynamicFields{}, 0)
	ctx.commit(profile.StaticFields{}, profile.DynamicFields{}, 2)

	first := ctx.drainLoss()
	assert.NotEmpty(t, first)
	second := ctx.drainLoss()
	assert.Empty(t, second)
}
