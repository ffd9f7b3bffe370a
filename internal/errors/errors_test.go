package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"greenmetrics/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWrapDerivesCodeFromDomainError(t *testing.T) {
	tests := []struct {
		err  error
		code string
		exit int
	}{
		{fmt.Errorf("run x: %w", core.ErrEmptyMeasurements), CodeValidationError, 2},
		{core.NewUnknownMetricError("foo"), CodeConfigInvalid, 3},
		{fmt.Errorf("%w: 3 repos", core.ErrUnsupportedComparison), CodeInvalidInput, 2},
		{core.ErrTooManyGroups, CodeInvalidInput, 2},
		{core.ErrNoComparisonData, CodeNotFound, 4},
		{core.NewNotFoundError("run", "abc"), CodeNotFound, 4},
		{stderrors.New("disk on fire"), CodeInternalError, 1},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := Wrap(tt.err, "operation failed")
			assert.Equal(t, tt.code, GetCode(wrapped))
			assert.Equal(t, tt.exit, ExitCode(wrapped))
			assert.True(t, stderrors.Is(wrapped, tt.err))
		})
	}
}

func TestWrapKeepsInnerAppErrorCode(t *testing.T) {
	inner := DatabaseError("insert failed", stderrors.New("connection reset"))
	outer := Wrapf(inner, "aggregate run %s", "abc")
	assert.Equal(t, CodeDatabaseError, GetCode(outer))
	assert.Equal(t, "aggregate run abc: insert failed: connection reset", outer.Error())
	assert.Equal(t, 5, ExitCode(outer))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "x"))
	assert.Nil(t, Wrapf(nil, "x %d", 1))
	assert.Nil(t, WithCode(CodeNotFound, nil))
	assert.Equal(t, 0, ExitCode(nil))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeNotFound, stderrors.New("gone"))
	assert.True(t, IsAppError(err))
	assert.Equal(t, CodeNotFound, GetCode(err))
}
