package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigInvalidMessage(t *testing.T) {
	err := NewConfigInvalid("sort key absent from both sides")
	assert.Contains(t, err.Error(), "sort key absent from both sides")
}

func TestPreprocessFailedMessage(t *testing.T) {
	err := &PreprocessFailed{RowIndex: 4, StepID: "s1", Kind: "ParseError"}
	assert.Contains(t, err.Error(), "row 4")
	assert.Contains(t, err.Error(), "s1")
}

func TestUnsupportedMessage(t *testing.T) {
	err := NewUnsupported("spreadsheet parsing")
	assert.Contains(t, err.Error(), "spreadsheet parsing")
}

func TestErrCancelledIsSentinel(t *testing.T) {
	wrapped := errors.New("wrap: " + ErrCancelled.Error())
	assert.NotErrorIs(t, wrapped, ErrCancelled)
	assert.ErrorIs(t, ErrCancelled, ErrCancelled)
}
