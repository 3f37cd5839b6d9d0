package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	assert.True(t, IsUnauthorized(ErrInvalidCredentials))
	assert.True(t, IsUnauthorized(ErrTokenReuse))
	assert.True(t, IsUnauthorized(fmt.Errorf("wrapped: %w", ErrInvalidSession)))
	assert.False(t, IsUnauthorized(ErrDuplicateEmail))

	assert.True(t, IsConflict(ErrDuplicateEmail))
	assert.True(t, IsConflict(ErrDuplicatePhone))
	assert.False(t, IsConflict(ErrInvalidCode))

	assert.True(t, IsNotFound(ErrUserNotFound))
	assert.True(t, IsStateViolation(ErrPasswordReuse))
	assert.True(t, IsStateViolation(ErrInvalidCode))
}

func TestCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{ErrDuplicateEmail, "ER_DUP_EMAIL"},
		{ErrDuplicatePhone, "ER_DUP_PHONE"},
		{ErrInvalidCredentials, "INVALID_CREDENTIALS"},
		{ErrTokenReuse, "TOKEN_REUSE"},
		{ErrInvalidSession, "INVALID_SESSION"},
		{ErrUserDisabled, "ACCOUNT_DISABLED"},
		{ErrEmailNotVerified, "EMAIL_NOT_VERIFIED"},
		{ErrPasswordReuse, "PASSWORD_REUSE"},
		{ErrInvalidCode, "INVALID_CODE"},
		{fmt.Errorf("load user: %w", ErrUserNotFound), "NOT_FOUND"},
		{fmt.Errorf("opaque storage failure"), "INTERNAL"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, Code(tt.err), "for error %v", tt.err)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	appErr := NewAppError(ErrInvalidToken, "bad token", 401, "INVALID_SESSION")
	assert.ErrorIs(t, appErr, ErrInvalidToken)
	assert.Contains(t, appErr.Error(), "bad token")
}
