package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestTypedErrors_Unwrap(t *testing.T) {
	tests := []struct {
		err  error
		want error
		msg  string
	}{
		{NewParameterError("navigation", "Invalid navigation parameter"), ErrValidation,
			"invalid parameter navigation: Invalid navigation parameter"},
		{NewParameterError("size", ""), ErrValidation, "invalid parameter: size"},
		{NewForbidden("User does not belong to a company."), ErrForbidden,
			"forbidden: User does not belong to a company."},
		{NewNotFound("Invalid product parameter"), ErrNotFound, "not found: Invalid product parameter"},
	}
	for _, tc := range tests {
		wrapped := fmt.Errorf("stage: %w", tc.err)
		if !errors.Is(wrapped, tc.want) {
			t.Errorf("%v should match %v", tc.err, tc.want)
		}
		if tc.err.Error() != tc.msg {
			t.Errorf("Error() = %q, want %q", tc.err.Error(), tc.msg)
		}
	}
}

func TestTypedErrors_As(t *testing.T) {
	err := fmt.Errorf("validate: %w", NewForbidden("no products"))
	var fe *ForbiddenError
	if !errors.As(err, &fe) || fe.Reason != "no products" {
		t.Errorf("errors.As failed: %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("forbidden must not match not found")
	}
}
