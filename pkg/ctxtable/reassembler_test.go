package ctxtable_test

import (
	"testing"

	"github.com/barvaux/gorohc/pkg/ctxtable"
	"github.com/stretchr/testify/assert"
)

func TestReassemblerJoinsSegments(t *testing.T) {
	r := ctxtable.NewReassembler(16)
	assert.NoError(t, r.Push([]byte{1, 2, 3}))
	assert.Equal(t, 3, r.Pending())

	full, err := r.Final([]byte{4, 5, 6})
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, full)
	assert.Equal(t, 0, r.Pending())
}

func TestReassemblerRejectsOverMRRU(t *testing.T) {
	r := ctxtable.NewReassembler(4)
	err := r.Push([]byte{1, 2, 3, 4, 5})
	assert.Error(t, err)
	assert.Equal(t, 0, r.Pending())
}

func TestReassemblerDisabledWhenMRRUZero(t *testing.T) {
	r := ctxtable.NewReassembler(0)
	err := r.Push([]byte{1})
	assert.Error(t, err)
}
