package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Concepts int                        `json:"concepts"`
	Syncs    int                        `json:"syncs"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate CUE concepts and sync rules",
		Long: `Validate CUE concept specs and sync rules.

Reports compile errors, schema errors, variables read before any clause
binds them and, when the directory declares concepts, rule references to
undeclared actions and queries. Rules that can trigger each other in a
loop are reported as warnings; they do not fail validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	b, loadErrs := compiler.LoadDir(specsDir)
	if b == nil {
		return formatter.fail(ExitCommandError, loadErrorCode(loadErrs[0]), loadErrs[0].Error(), nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", b.FileCount, specsDir)

	result := ValidationResult{Concepts: len(b.Concepts), Syncs: len(b.Syncs)}
	for _, err := range loadErrs {
		result.Errors = append(result.Errors, fromLoadError(err))
	}
	for _, spec := range b.Concepts {
		formatter.VerboseLog("Validating concept: %s", spec.Name)
		result.Errors = append(result.Errors, prefixed("concept."+spec.Name, compiler.Validate(spec))...)
	}
	rules := b.Rules()
	for i := range rules {
		formatter.VerboseLog("Validating sync: %s", rules[i].ID())
		result.Errors = append(result.Errors, prefixed("sync."+rules[i].ID(), compiler.Validate(&rules[i]))...)
	}
	if len(b.Concepts) > 0 {
		result.Errors = append(result.Errors, compiler.ValidateReferences(b.Concepts, rules)...)
	}
	result.Warnings = compiler.AnalyzeCycles(rules)
	result.Valid = len(result.Errors) == 0

	if opts.Format == "json" {
		if err := writeValidationJSON(formatter, result); err != nil {
			return err
		}
	} else {
		writeValidationText(formatter, result)
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}

func fromLoadError(err error) compiler.ValidationError {
	var le *compiler.LoadError
	if errors.As(err, &le) {
		ve := compiler.ValidationError{Field: "load", Message: le.Message, Code: le.Code}
		if le.Pos.IsValid() {
			ve.Line = le.Pos.Line()
		}
		return ve
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: compiler.ErrCodeGeneric}
}

func prefixed(prefix string, errs []compiler.ValidationError) []compiler.ValidationError {
	for i := range errs {
		errs[i].Field = prefix + "." + errs[i].Field
	}
	return errs
}

func writeValidationJSON(f *OutputFormatter, result ValidationResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if !result.Valid {
		resp.Status = "error"
		resp.Error = &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message}
	}
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func writeValidationText(f *OutputFormatter, result ValidationResult) {
	w := f.Writer
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn.Message)
	}
	if result.Valid {
		fmt.Fprintf(w, "✓ All specs valid (%d concepts, %d syncs)\n", result.Concepts, result.Syncs)
		return
	}

	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, err := range result.Errors {
		if err.Line > 0 {
			fmt.Fprintf(w, "line %d\n", err.Line)
		}
		fmt.Fprintf(w, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
}
