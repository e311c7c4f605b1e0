package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/compiler"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/config"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/syncs"
)

// loadRuleSets compiles the CUE specs in dir into rule sets. An empty dir
// selects the built-in sets.
func loadRuleSets(dir string) ([]syncs.Set, error) {
	if dir == "" {
		return syncs.All(), nil
	}
	b, errs := compiler.LoadDir(dir)
	if len(errs) > 0 {
		return nil, fmt.Errorf("load specs %s: %w", dir, errors.Join(errs...))
	}
	sets := make([]syncs.Set, 0, len(b.Sets()))
	for _, rs := range b.Sets() {
		sets = append(sets, syncs.Set{Name: rs.Name, Rules: rs.Rules})
	}
	return sets, nil
}

// loadErrorCode returns the code of a *compiler.LoadError, or the generic
// code.
func loadErrorCode(err error) string {
	var le *compiler.LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return compiler.ErrCodeGeneric
}

// commandLogger builds the logger of a long-running command from the
// environment, writing to w. Verbose forces debug level.
func commandLogger(cfg config.Config, w io.Writer, verbose bool) *slog.Logger {
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg.Logger(w)
}
