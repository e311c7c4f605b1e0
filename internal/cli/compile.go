package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/compiler"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// CompilationResult is the compiled form of a specs directory.
type CompilationResult struct {
	Concepts []ir.ConceptSpec `json:"concepts"`
	Syncs    []RuleSummary    `json:"syncs"`
}

// RuleSummary lists the actions and queries a rule reads and writes.
type RuleSummary struct {
	ID    string         `json:"id"`
	Set   string         `json:"set"`
	When  []ir.ActionRef `json:"when"`
	Where []ir.ActionRef `json:"where,omitempty"`
	Then  []ir.ActionRef `json:"then"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE specs and summarize the result",
		Long: `Compile CUE concept specs and sync rules.

Prints the concepts and, for each rule, the actions it matches, the
queries it joins and the actions it invokes. With --output the result is
written as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	b, loadErrs := compiler.LoadDir(specsDir)
	if b == nil {
		return formatter.fail(ExitCommandError, loadErrorCode(loadErrs[0]), loadErrs[0].Error(), nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", b.FileCount, specsDir)
	if len(loadErrs) > 0 {
		return writeCompileErrors(formatter, loadErrs)
	}

	result := &CompilationResult{Concepts: b.Concepts, Syncs: summarize(b.Rules())}
	if result.Concepts == nil {
		result.Concepts = []ir.ConceptSpec{}
	}

	if opts.Output != "" {
		if err := writeJSONFile(result, opts.Output); err != nil {
			return formatter.fail(ExitCommandError, compiler.ErrCodeGeneric, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	writeCompileText(formatter, result, opts.Output)
	return nil
}

func summarize(rules []rule.SyncRule) []RuleSummary {
	out := make([]RuleSummary, 0, len(rules))
	for i := range rules {
		r := &rules[i]
		s := RuleSummary{ID: r.ID(), Set: r.Set, When: r.Triggers()}
		for _, step := range r.Where {
			if j, ok := step.(rule.Join); ok {
				s.Where = append(s.Where, j.Query)
			}
		}
		for _, t := range r.Then {
			s.Then = append(s.Then, t.Action)
		}
		out = append(out, s)
	}
	return out
}

func writeCompileText(f *OutputFormatter, result *CompilationResult, outputFile string) {
	w := f.Writer
	fmt.Fprintf(w, "✓ Compiled %d concept(s), %d sync(s)\n\n", len(result.Concepts), len(result.Syncs))

	if len(result.Concepts) > 0 {
		fmt.Fprintln(w, "Concepts:")
		for _, c := range result.Concepts {
			fmt.Fprintf(w, "  %s: %d action(s), %d quer(ies)\n", c.Name, len(c.Actions), len(c.Queries))
		}
		fmt.Fprintln(w)
	}

	if len(result.Syncs) > 0 {
		fmt.Fprintln(w, "Syncs:")
		for _, s := range result.Syncs {
			fmt.Fprintf(w, "  %s: %v → %v\n", s.ID, s.When, s.Then)
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote %s\n", outputFile)
	}
}

func writeCompileErrors(f *OutputFormatter, errs []error) error {
	if f.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			cliErrors[i] = CLIError{Code: loadErrorCode(err), Message: err.Error()}
		}
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(CLIResponse{Status: "error", Error: &cliErrors[0], Data: cliErrors}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(f.Writer, "✗ Compilation failed")
		fmt.Fprintln(f.Writer)
		for _, err := range errs {
			fmt.Fprintf(f.Writer, "  %s\n", err)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

func writeJSONFile(v any, filename string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}
