package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaveStateTransitions(t *testing.T) {
	var s SaveState
	assert.Equal(t, Clean, s.Status())

	s.Changed()
	assert.Equal(t, Dirty, s.Status())

	rev := s.Started()
	assert.Equal(t, Saving, s.Status())

	s.Settled(rev, nil)
	assert.Equal(t, Clean, s.Status())
	assert.NoError(t, s.Err())
}

func TestSaveStateEditDuringSave(t *testing.T) {
	var s SaveState
	s.Changed()
	rev := s.Started()
	s.Changed()
	assert.Equal(t, Saving, s.Status())

	s.Settled(rev, nil)
	assert.Equal(t, Dirty, s.Status(), "the later edit is still unsaved")
	assert.True(t, s.Pending())

	s.Settled(s.Started(), nil)
	assert.Equal(t, Clean, s.Status())
}

func TestSaveStateFailure(t *testing.T) {
	var s SaveState
	s.Changed()
	boom := errors.New("offline")
	s.Settled(s.Started(), boom)

	assert.Equal(t, Dirty, s.Status())
	assert.ErrorIs(t, s.Err(), boom)

	s.Reset()
	assert.Equal(t, Clean, s.Status())
	assert.NoError(t, s.Err())
}

func TestSaveStatusString(t *testing.T) {
	assert.Equal(t, "saved", Clean.String())
	assert.Equal(t, "unsaved", Dirty.String())
	assert.Equal(t, "saving", Saving.String())
}
