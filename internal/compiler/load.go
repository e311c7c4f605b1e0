package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// Load error codes (E001-E099).
const (
	ErrCodeGeneric     = "E001"
	ErrCodeScanError   = "E002"
	ErrCodeNoFiles     = "E003"
	ErrCodeLoadFailed  = "E004"
	ErrCodeNotFound    = "E005"
	ErrCodeBuildFailed = "E006"
)

// LoadError is a failure while loading a spec directory.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Bundle is everything compiled from one spec directory.
type Bundle struct {
	Concepts  []ir.ConceptSpec
	Syncs     []CompiledSync
	FileCount int
}

// RuleSet is a named group of rules in declaration order.
type RuleSet struct {
	Name  string
	Rules []rule.SyncRule
}

// Sets groups the bundle's rules by set, ordered by each set's first rule.
func (b *Bundle) Sets() []RuleSet {
	index := make(map[string]int)
	var sets []RuleSet
	for _, cs := range b.Syncs {
		i, ok := index[cs.Set]
		if !ok {
			i = len(sets)
			index[cs.Set] = i
			sets = append(sets, RuleSet{Name: cs.Set})
		}
		sets[i].Rules = append(sets[i].Rules, cs.Rule)
	}
	return sets
}

// Rules returns every rule with Set filled in, in declaration order.
func (b *Bundle) Rules() []rule.SyncRule {
	out := make([]rule.SyncRule, 0, len(b.Syncs))
	for _, cs := range b.Syncs {
		r := cs.Rule
		r.Set = cs.Set
		out = append(out, r)
	}
	return out
}

// LoadDir loads the CUE package in dir and compiles every concept and
// sync in it. Compilation errors are collected rather than returned on the
// first failure; the bundle holds whatever compiled. A nil bundle means the
// directory itself could not be loaded.
func LoadDir(dir string) (*Bundle, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	if err := instances[0].Err; err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", err)}}
	}
	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	b, errs := CompileValue(value)
	b.FileCount = len(files)
	return b, errs
}

// CompileValue compiles every `concept:` and `sync:` entry of a built CUE
// value.
func CompileValue(value cue.Value) (*Bundle, []error) {
	b := &Bundle{}
	var errs []error

	each(value, "concept", &errs, func(label string, v cue.Value) {
		spec, err := CompileConcept(v)
		if err != nil {
			errs = append(errs, convertCompileError(err, "concept."+label))
			return
		}
		b.Concepts = append(b.Concepts, *spec)
	})
	each(value, "sync", &errs, func(label string, v cue.Value) {
		cs, err := CompileSync(v)
		if err != nil {
			errs = append(errs, convertCompileError(err, "sync."+label))
			return
		}
		b.Syncs = append(b.Syncs, *cs)
	})

	if len(b.Concepts) == 0 && len(b.Syncs) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no concepts or syncs found in specs"})
	}
	return b, errs
}

func each(value cue.Value, section string, errs *[]error, fn func(string, cue.Value)) {
	v := value.LookupPath(cue.ParsePath(section))
	if !v.Exists() {
		return
	}
	iter, err := v.Fields()
	if err != nil {
		*errs = append(*errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating %s: %v", section, err)})
		return
	}
	for iter.Next() {
		fn(iter.Label(), iter.Value())
	}
}

// FindCUEFiles returns the .cue files under dir.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func convertCompileError(err error, context string) *LoadError {
	var ce *CompileError
	if errors.As(err, &ce) {
		return &LoadError{
			Code:    MapFieldToErrorCode(ce.Field),
			Message: fmt.Sprintf("%s: %s: %s", context, ce.Field, ce.Message),
			Pos:     ce.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: %v", context, err)}
}

// MapFieldToErrorCode maps a CompileError field to a validation code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "purpose":
		return ErrConceptPurposeEmpty
	case field == "action":
		return ErrConceptNoActions
	case field == "type":
		return ErrInvalidFieldType
	case field == "when" || field == "then":
		return ErrMissingSyncClause
	case hasClause(field, "when"):
		return ErrInvalidActionRef
	case hasClause(field, "where"):
		return ErrInvalidWhereClause
	case hasClause(field, "then"):
		return ErrInvalidThenClause
	case strings.HasSuffix(field, ".outputs"):
		return ErrActionNoOutputs
	default:
		return ErrCodeGeneric
	}
}

func hasClause(field, clause string) bool {
	rest, ok := strings.CutPrefix(field, clause)
	return ok && (rest == "" || rest[0] == '[' || rest[0] == '.')
}
