package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/assert"
)

func TestInsufficientCreditsMetadata(t *testing.T) {
	err := InsufficientCredits(600, 400)

	assert.True(t, IsInsufficientCredits(err))
	assert.EqualValues(t, 402, errors.Code(err))
	assert.Equal(t, "600", err.Metadata["required"])
	assert.Equal(t, "400", err.Metadata["current"])
	assert.Equal(t, "210201", err.Metadata["code"])
	// the shared sentinel must stay untouched
	assert.Empty(t, ErrInsufficientCredits.Metadata["required"])
}

func TestClassification(t *testing.T) {
	wrapped := fmt.Errorf("deduct: %w", InsufficientCredits(1, 0))
	assert.True(t, IsInsufficientCredits(wrapped))
	assert.True(t, IsDomain(wrapped))
	assert.False(t, IsRetryable(wrapped))

	unavailable := LedgerUnavailable(stderrors.New("connection refused"))
	assert.True(t, IsRetryable(unavailable))
	assert.EqualValues(t, 503, errors.Code(unavailable))

	assert.False(t, IsDomain(stderrors.New("plain")))
	assert.True(t, IsUnknownAccount(UnknownAccount("acc_1")))
	assert.True(t, IsAlreadyReconciled(AlreadyReconciled("evt_1")))
	assert.True(t, IsInvalidTransition(InvalidTransition("canceled", "past_due")))
}
