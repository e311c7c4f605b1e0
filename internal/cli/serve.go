package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/concepts"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/config"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/httpapi"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/metrics"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/store"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/telemetry"
)

const serviceName = "syncsim"

// ServeOptions holds flags for the serve command. Set flags override the
// SYNCSIM_* environment.
type ServeOptions struct {
	*RootOptions
	Addr     string
	Database string
	Specs    string
	Tick     time.Duration
	NoSeed   bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the platform over HTTP",
		Long: `Serve the demo platform over HTTP.

POST /api/{method} turns the JSON body into an API.request stimulus and
answers with the response the rules assembled. GET /healthz reports
liveness, GET /metrics serves Prometheus metrics and, with a trace log,
GET /debug/flows lists stored cascades.

Every tick, each running simulation is stepped through the engine queue.

Settings come from SYNCSIM_* variables; flags override them.

Example:
  syncsim serve --addr :8080 --db ./trace.db --tick 500ms`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (SYNCSIM_ADDR)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite trace log path (SYNCSIM_DB)")
	cmd.Flags().StringVar(&opts.Specs, "specs", "", "CUE rule directory (SYNCSIM_SPECS)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", 0, "simulation step interval, 0 keeps SYNCSIM_TICK (SYNCSIM_TICK)")
	cmd.Flags().BoolVar(&opts.NoSeed, "no-seed", false, "start without the solar system bodies")

	return cmd
}

func (o *ServeOptions) apply(cfg *config.Config) {
	if o.Addr != "" {
		cfg.Addr = o.Addr
	}
	if o.Database != "" {
		cfg.DB = o.Database
	}
	if o.Specs != "" {
		cfg.Specs = o.Specs
	}
	if o.Tick > 0 {
		cfg.Tick = o.Tick
	}
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	opts.apply(&cfg)
	logger := commandLogger(cfg, cmd.ErrOrStderr(), opts.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return WrapExitError(ExitCommandError, "set up tracing", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Error("flush traces", "error", err)
		}
	}()

	app, err := newApp(ctx, cfg, logger, !opts.NoSeed)
	if err != nil {
		return WrapExitError(ExitCommandError, "start platform", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", cfg.Addr)

	done := app.Start(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	app.engine.Stop()
	<-done

	if serveErr != nil {
		return WrapExitError(ExitFailure, "http server", serveErr)
	}
	return nil
}

// app is the composed platform behind serve.
type app struct {
	engine  *engine.Engine
	handles map[string]*engine.Handle
	handler http.Handler
	store   *store.Store
	tick    time.Duration
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, seed bool) (*app, error) {
	sets, err := loadRuleSets(cfg.Specs)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	observers := []engine.Observer{m}
	if cfg.OTelEndpoint != "" {
		observers = append(observers, telemetry.NewObserver(nil))
	}

	a := &app{tick: cfg.Tick, logger: logger}
	if cfg.DB != "" {
		if a.store, err = store.Open(cfg.DB); err != nil {
			return nil, fmt.Errorf("open trace log: %w", err)
		}
		observers = append(observers, store.NewRecorder(a.store, logger))
	}

	engineOpts := append([]engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithObserver(observers...),
	}, cfg.EngineOptions()...)
	a.engine = engine.New(engineOpts...)

	a.handles, err = a.engine.Instrument(concepts.New(concepts.WithPasswordCost(cfg.PasswordCost)))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("instrument concepts: %w", err)
	}
	for _, set := range sets {
		if err := a.engine.Register(set.Name, set.Rules...); err != nil {
			a.Close()
			return nil, fmt.Errorf("register %s: %w", set.Name, err)
		}
	}

	if seed {
		for _, st := range concepts.SimulationTypes() {
			if _, err := a.handles["SimulationType"].Dispatch(ctx, "register", st); err != nil {
				a.Close()
				return nil, fmt.Errorf("seed %s: %w", st.String("id"), err)
			}
		}
		for _, body := range concepts.SolarSystem() {
			if _, err := a.handles["CelestialBody"].Dispatch(ctx, "create", body); err != nil {
				a.Close()
				return nil, fmt.Errorf("seed %s: %w", body.String("id"), err)
			}
		}
	}

	handlerOpts := []httpapi.Option{
		httpapi.WithLogger(logger),
		httpapi.WithMetrics(m.Handler()),
	}
	if a.store != nil {
		handlerOpts = append(handlerOpts, httpapi.WithStore(a.store))
	}
	a.handler = httpapi.NewHandler(a.handles["API"], handlerOpts...)
	return a, nil
}

// Start runs the engine queue and the simulation ticker. The returned
// channel closes once both have stopped; stop them by cancelling ctx or
// calling Engine.Stop.
func (a *app) Start(ctx context.Context) <-chan struct{} {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := a.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("engine stopped", "error", err)
		}
	}()
	if a.tick > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.tickLoop(ctx)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (a *app) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.stepActive(ctx)
		}
	}
}

// stepActive queues one Simulation.step for every running simulation.
func (a *app) stepActive(ctx context.Context) int {
	rows, err := a.handles["Simulation"].Query(ctx, "_getActive", ir.IRObject{})
	if err != nil {
		a.logger.Error("list active simulations", "error", err)
		return 0
	}
	queued := 0
	for _, row := range rows {
		if _, ok := a.engine.Enqueue("Simulation.step", ir.IRObject{"id": row["id"]}); !ok {
			break
		}
		queued++
	}
	return queued
}

// Close releases the trace log.
func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("close trace log", "error", err)
	}
}
