package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeflow/internal/project"
)

// FileError is one positioned validation failure in CLI output.
type FileError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool        `json:"valid"`
	Errors []FileError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <project-file>",
		Short: "Validate a project file against the schema",
		Long: `Validate a project file without loading it into an engine.

Checks JSON well-formedness and schema conformance (connection shape,
pin and type enums, packet structure) and reports every violation with
its position.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error(project.ErrCodeRead, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading project file", err)
	}

	formatter.VerboseLog("Validating %s (%d bytes)", path, len(data))

	errs := project.Validate(filepath.Base(path), data)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	return outputValidateSuccess(formatter)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}

	fmt.Fprintln(formatter.Writer, "✓ Project file valid")
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []error) error {
	fileErrs := make([]FileError, 0, len(errs))
	for _, err := range errs {
		fileErrs = append(fileErrs, toFileError(err))
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: fileErrs,
			},
			Error: &CLIError{
				Code:    fileErrs[0].Code,
				Message: fileErrs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, fe := range fileErrs {
		if fe.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", fe.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", fe.Code, fe.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// toFileError flattens a project validation error for CLI output.
func toFileError(err error) FileError {
	var verr *project.ValidationError
	if errors.As(err, &verr) {
		fe := FileError{Code: verr.Code, Message: verr.Message}
		if verr.Pos.IsValid() {
			fe.Line = verr.Pos.Line()
			fe.Column = verr.Pos.Column()
		}
		return fe
	}
	return FileError{Code: project.ErrCodeSchema, Message: err.Error()}
}
