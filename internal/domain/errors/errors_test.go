package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestSentinelErrors tests that all sentinel errors are defined
func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrInvalidEntityID", ErrInvalidEntityID},
		{"ErrEntityNotFound", ErrEntityNotFound},
		{"ErrEntityAlreadyExists", ErrEntityAlreadyExists},
		{"ErrScopeClosed", ErrScopeClosed},
		{"ErrUnitOfWorkFinished", ErrUnitOfWorkFinished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("%s should not be nil", tt.name)
			}
			if tt.err.Error() == "" {
				t.Errorf("%s should have an error message", tt.name)
			}
		})
	}
}

func TestDatabaseError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DatabaseError
		contains []string
	}{
		{
			name:     "Without constraint",
			err:      NewDatabaseError("product.add", errors.New("connection reset")),
			contains: []string{"product.add", "connection reset"},
		},
		{
			name: "With constraint",
			err: &DatabaseError{
				Op:         "product.add",
				Code:       "23505",
				Constraint: "product_product_number_key",
				Err:        errors.New("duplicate key"),
			},
			contains: []string{"product_product_number_key", "duplicate key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, part := range tt.contains {
				if !strings.Contains(msg, part) {
					t.Errorf("Error() = %q, want it to contain %q", msg, part)
				}
			}
		})
	}
}

func TestDatabaseError_Unwrap(t *testing.T) {
	inner := errors.New("timeout")
	err := fmt.Errorf("failed to add product: %w", NewDatabaseError("product.add", inner))

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !IsDatabaseError(err) {
		t.Error("IsDatabaseError should see through fmt wrapping")
	}
	if IsNotFound(err) {
		t.Error("database faults must never look like not found")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&DatabaseError{Op: "x", Code: "23505", Err: errors.New("dup")}) {
		t.Error("SQLSTATE 23505 should be a unique violation")
	}
	if !IsUniqueViolation(NewDatabaseError("x", ErrEntityAlreadyExists)) {
		t.Error("ErrEntityAlreadyExists cause should be a unique violation")
	}
	if IsUniqueViolation(&DatabaseError{Op: "x", Code: "23503", Err: errors.New("fk")}) {
		t.Error("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(errors.New("plain")) {
		t.Error("plain errors are not unique violations")
	}
}

func TestInvalidStateError(t *testing.T) {
	err := NewInvalidStateError("result.Value", "value requested from failed result")

	if !strings.Contains(err.Error(), "result.Value") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !IsInvalidState(fmt.Errorf("wrapped: %w", err)) {
		t.Error("IsInvalidState should see through wrapping")
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.HasErrors() {
		t.Error("empty collection should have no errors")
	}
	if errs.Error() != "validation failed" {
		t.Errorf("unexpected message: %s", errs.Error())
	}

	errs.Add("name", "required", "The field 'name' is required.")
	errs.Add("list_price", "gte", "too low")

	if !errs.HasErrors() {
		t.Error("collection should have errors")
	}
	if !errs.HasField("name") || errs.HasField("color") {
		t.Error("HasField mismatch")
	}
	if !strings.Contains(errs.Error(), "2 error(s)") {
		t.Errorf("unexpected message: %s", errs.Error())
	}
	if !IsValidationError(errs) || !IsValidationError(errs[0]) {
		t.Error("IsValidationError should match both forms")
	}
}
