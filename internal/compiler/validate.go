package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/firanno/internal/ir"
)

// Annotation record error codes (E200-E299)
const (
	ErrClassMissing     = "E201" // class field absent or empty
	ErrUnknownClass     = "E202" // class does not resolve to a registered kind
	ErrMissingParameter = "E203" // variant parameter absent
	ErrUnknownField     = "E204" // field is neither class, target nor a parameter
	ErrFieldNotString   = "E205" // field value is not a string
	ErrInvalidTarget    = "E206" // target does not follow FIRRTL target syntax
	ErrTargetRequired   = "E207" // variant needs a module target
	ErrTargetForbidden  = "E208" // variant applies to the whole circuit
	ErrMalformed        = "E209" // rejected by the construction API
	ErrDecode           = "E210" // file could not be decoded
)

// TargetRule says which targets a kind accepts.
type TargetRule int

const (
	// TargetOptional accepts no target or any well-formed target.
	TargetOptional TargetRule = iota
	// TargetModule requires a module target such as "~Top|Foo".
	TargetModule
	// TargetNone rejects any target.
	TargetNone
)

// builtinTargetRules covers the kinds registered by every ir.Context.
var builtinTargetRules = map[ir.Kind]TargetRule{
	ir.KindInline:       TargetModule,
	ir.KindNoDedup:      TargetModule,
	ir.KindRunTransform: TargetNone,
}

const identPattern = `[A-Za-z_][A-Za-z0-9_$]*`

// targetRE matches ~Circuit, ~Circuit|Module, ~Circuit|Top/inst:Mod and
// ~Circuit|Module>ref.field[0].
var targetRE = regexp.MustCompile(
	`^~` + identPattern +
		`(\|` + identPattern +
		`(/` + identPattern + `:` + identPattern + `)*` +
		`(>` + identPattern + `(\.` + identPattern + `|\[[0-9]+\])*)?)?$`)

// ValidationError describes one problem with a target.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateTarget checks target syntax only. The empty target is valid.
func ValidateTarget(target string) *ValidationError {
	if target == "" || targetRE.MatchString(target) {
		return nil
	}
	return &ValidationError{
		Field:   "target",
		Message: fmt.Sprintf("invalid target %q: want ~Circuit|Module[>ref]", target),
		Code:    ErrInvalidTarget,
	}
}

// IsModuleTarget reports whether target names a module (or instance path)
// rather than the whole circuit or a reference inside a module.
func IsModuleTarget(target string) bool {
	return targetRE.MatchString(target) && strings.Contains(target, "|") && !strings.Contains(target, ">")
}

// checkTarget validates target against the rule for kind.
func checkTarget(rule TargetRule, kind ir.Kind, target string) *ValidationError {
	if verr := ValidateTarget(target); verr != nil {
		return verr
	}
	switch rule {
	case TargetModule:
		if !IsModuleTarget(target) {
			return &ValidationError{
				Field:   "target",
				Message: fmt.Sprintf("%s needs a module target, got %q", kind, target),
				Code:    ErrTargetRequired,
			}
		}
	case TargetNone:
		if target != "" {
			return &ValidationError{
				Field:   "target",
				Message: fmt.Sprintf("%s does not take a target, got %q", kind, target),
				Code:    ErrTargetForbidden,
			}
		}
	}
	return nil
}
