package features

import (
	"testing"

	"github.com/devctl/devctl/internal/xerrors"
)

func TestValidateOptions_AcceptsDeclaredTypes(t *testing.T) {
	defs := map[string]OptionDefinition{
		"version": {Type: "string", Enum: []string{"1", "2"}},
		"lts":     {Type: "boolean"},
	}
	err := ValidateOptions("go", defs, map[string]OptionValue{
		"version": "1",
		"lts":     true,
	})
	if err != nil {
		t.Fatalf("ValidateOptions() unexpected error: %v", err)
	}
}

func TestValidateOptions_RejectsUnknownOption(t *testing.T) {
	defs := map[string]OptionDefinition{
		"version": {Type: "string"},
	}
	err := ValidateOptions("go", defs, map[string]OptionValue{
		"bogus": "x",
	})
	if err == nil {
		t.Fatal("expected error for unknown option")
	}
	xe, ok := xerrors.As(err)
	if !ok || xe.Category != xerrors.CategoryValidation {
		t.Fatalf("expected CategoryValidation, got %v", err)
	}
}

func TestValidateOptions_RejectsWrongType(t *testing.T) {
	defs := map[string]OptionDefinition{
		"lts": {Type: "boolean"},
	}
	err := ValidateOptions("go", defs, map[string]OptionValue{
		"lts": "not-a-bool",
	})
	if err == nil {
		t.Fatal("expected error for mistyped option")
	}
}

func TestValidateOptions_RejectsEnumViolation(t *testing.T) {
	defs := map[string]OptionDefinition{
		"version": {Type: "string", Enum: []string{"1", "2"}},
	}
	err := ValidateOptions("go", defs, map[string]OptionValue{
		"version": "3",
	})
	if err == nil {
		t.Fatal("expected error for enum violation")
	}
}
