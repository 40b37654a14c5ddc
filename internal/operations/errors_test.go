package operations

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cohortetl/internal/errors"
)

func TestWrapError(t *testing.T) {
	structural := apperrors.NewStructuralError("missing column Duration", nil)

	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{name: "plain error", err: errors.New("boom"), want: ErrorTypeExecution},
		{name: "cancelled", err: fmt.Errorf("reading: %w", context.Canceled), want: ErrorTypeCancellation},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorTypeTimeout},
		{name: "structural", err: structural, want: ErrorTypeExecution},
		{name: "already wrapped", err: NewValidationError("", "schema missing"), want: ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err, StepIDLoad)
			require.NotNil(t, wrapped)
			assert.Equal(t, tt.want, wrapped.Type)
			assert.Equal(t, StepIDLoad, wrapped.Step)
		})
	}

	assert.Nil(t, WrapError(nil, StepIDLoad))
}

func TestOperationError_KeepsCause(t *testing.T) {
	cause := apperrors.NewPublishError("rename failed", nil)
	err := error(WrapError(cause, StepIDPublish))

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, apperrors.ErrTypePublish, apperrors.TypeOf(err))
	assert.Contains(t, err.Error(), "[execution] publish")
	assert.Contains(t, err.Error(), "rename failed")
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorType(""), GetErrorType(nil))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(errors.New("x")))
	assert.Equal(t, ErrorTypeTimeout, GetErrorType(NewTimeoutError(StepIDLoad, "1s")))
	assert.True(t, IsCancellation(fmt.Errorf("run: %w", NewCancellationError(StepIDLoad, context.Canceled))))
	assert.Equal(t, ErrorTypeFatal, GetErrorType(NewFatalError("no state", nil)))
}
