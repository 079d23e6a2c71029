// internal/core/errors_test.go
package core

import (
	"errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	wrapped := WrapError(ErrInvalidInput, errors.New("bad bar"))
	if !errors.Is(wrapped, ErrInvalidInput) {
		t.Error("wrapped error should match its base code")
	}
	if errors.Is(wrapped, ErrConfigInvalid) {
		t.Error("different codes should not match")
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(ErrConfigInvalid, "min %d > max %d", 5, 2)
	if err.Code != ErrConfigInvalid.Code {
		t.Error("code not preserved")
	}
	if err.Error() != "[CONFIG_INVALID] configuration invalid: min 5 > max 2" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}
