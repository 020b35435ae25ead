package project

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaCUE string

// Error code constants for project file handling.
const (
	ErrCodeRead    = "E201" // File read error
	ErrCodeParse   = "E202" // JSON parse error
	ErrCodeSchema  = "E203" // Schema violation
	ErrCodeVersion = "E204" // Unsupported file version
	ErrCodeWrite   = "E205" // File write error
)

// ValidationError is a single project file validation failure, with the
// source position when the schema checker provides one.
type ValidationError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validate checks raw project file bytes against the embedded schema.
// Returns all violations, not just the first; an empty slice means the
// file is well-formed.
func Validate(filename string, data []byte) []error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return []error{&ValidationError{Code: ErrCodeSchema, Message: fmt.Sprintf("compiling schema: %v", err)}}
	}

	expr, err := cuejson.Extract(filename, data)
	if err != nil {
		return collectErrors(ErrCodeParse, err)
	}
	value := ctx.BuildExpr(expr)
	if err := value.Err(); err != nil {
		return collectErrors(ErrCodeParse, err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(); err != nil {
		return collectErrors(ErrCodeSchema, err)
	}
	return nil
}

// collectErrors flattens a CUE error list into positioned ValidationErrors.
func collectErrors(code string, err error) []error {
	var errs []error
	for _, e := range cueerrors.Errors(err) {
		errs = append(errs, &ValidationError{
			Code:    code,
			Message: e.Error(),
			Pos:     e.Position(),
		})
	}
	if len(errs) == 0 {
		errs = append(errs, &ValidationError{Code: code, Message: err.Error()})
	}
	return errs
}
