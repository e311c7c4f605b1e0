package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/store"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/testutil"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Args     string
	Specs    string
	Setup    []string
	Seed     bool
	MaxDepth int
	Database string
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <action-uri>",
		Short: "Invoke an action and print its cascade",
		Long: `Invoke an action on a fresh instance of the demo concepts and print
every record of the cascade it causes.

The concepts use sequential ids and a fixed clock, so the same command
prints the same cascade every time. --setup runs actions first, without
printing them; it may be repeated.

Examples:
  syncsim invoke API.request --args '{"method":"guest_login"}'
  syncsim invoke Simulation.step --args '{"id":"main"}' \
    --setup 'Simulation.create={"id":"main"}' \
    --setup 'Renderer.createScene={"id":"main"}' --seed
  syncsim invoke Simulation.step --specs ./loop --max-depth 10 --args '{"id":"x"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeAction(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "action arguments as a JSON object")
	cmd.Flags().StringVar(&opts.Specs, "specs", "", "CUE rule directory (default: built-in rule sets)")
	cmd.Flags().StringArrayVar(&opts.Setup, "setup", nil, "action to run first, as Concept.action={json}")
	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "create the sun and the eight planets first")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 0, "cascade depth ceiling (default: engine default)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "also record the cascade in this SQLite trace log")

	return cmd
}

func invokeAction(opts *InvokeOptions, action string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	if _, err := ir.ParseActionRef(action); err != nil {
		return formatter.fail(ExitCommandError, "E001", err.Error(), nil)
	}
	input, err := parseObject(opts.Args)
	if err != nil {
		return formatter.fail(ExitCommandError, "E001", fmt.Sprintf("invalid --args JSON: %v", err), nil)
	}
	setup := make([]setupStep, 0, len(opts.Setup))
	for _, s := range opts.Setup {
		step, err := parseSetupStep(s)
		if err != nil {
			return formatter.fail(ExitCommandError, "E001", err.Error(), nil)
		}
		setup = append(setup, step)
	}

	sets, err := loadRuleSets(opts.Specs)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), err.Error(), nil)
	}

	var engineOpts []engine.EngineOption
	if opts.MaxDepth > 0 {
		engineOpts = append(engineOpts, engine.WithMaxDepth(opts.MaxDepth))
	}
	var recorder *store.Recorder
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return formatter.fail(ExitCommandError, "E005", fmt.Sprintf("open trace log: %v", err), nil)
		}
		defer st.Close()
		recorder = store.NewRecorder(st, nil)
		// Sequential flow tokens would collide with earlier runs.
		engineOpts = append(engineOpts,
			engine.WithObserver(recorder),
			engine.WithFlowGenerator(engine.UUIDv7Generator{}),
		)
	}

	p, err := testutil.NewPlatform(testutil.WithRules(sets...), testutil.WithEngineOptions(engineOpts...))
	if err != nil {
		return formatter.fail(ExitCommandError, "E001", err.Error(), nil)
	}
	if opts.Seed {
		if err := p.Seed(ctx); err != nil {
			return formatter.fail(ExitCommandError, "E001", err.Error(), nil)
		}
	}
	for _, step := range setup {
		formatter.VerboseLog("setup %s", step.action)
		if _, err := p.Dispatch(ctx, step.action, step.input); err != nil {
			return formatter.fail(ExitFailure, "E001", fmt.Sprintf("setup %s: %v", step.action, err), nil)
		}
	}

	out, err := p.Dispatch(ctx, action, input)
	if err != nil {
		return formatter.fail(ExitFailure, "E001", err.Error(), nil)
	}
	if recorder != nil {
		if err := recorder.Err(); err != nil {
			return formatter.fail(ExitCommandError, "E001", fmt.Sprintf("write trace log: %v", err), nil)
		}
	}

	view := viewFromOutcome(out)
	if opts.Format == "json" {
		if err := formatter.JSON(view); err != nil {
			return err
		}
	} else {
		writeCascade(formatter.Writer, view, opts.Verbose)
	}
	if len(out.Faults) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("cascade raised %d fault(s)", len(out.Faults)))
	}
	return nil
}

type setupStep struct {
	action string
	input  ir.IRObject
}

// parseSetupStep parses "Concept.action" or "Concept.action={json}".
func parseSetupStep(s string) (setupStep, error) {
	action, args, found := strings.Cut(s, "=")
	if _, err := ir.ParseActionRef(action); err != nil {
		return setupStep{}, fmt.Errorf("--setup %q: %w", s, err)
	}
	input := ir.IRObject{}
	if found {
		var err error
		if input, err = parseObject(args); err != nil {
			return setupStep{}, fmt.Errorf("--setup %q: %w", s, err)
		}
	}
	return setupStep{action: action, input: input}, nil
}

func parseObject(s string) (ir.IRObject, error) {
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = ir.IRObject{}
	}
	return obj, nil
}
