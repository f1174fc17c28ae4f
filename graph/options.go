package graph

import (
	"github.com/go-playground/validator/v10"

	graphlog "github.com/supersteprun/graph/graph/log"
)

// Option configures a Runner at construction time. Functional options keep
// the constructor signature stable as new knobs are added.
type Option func(*runnerConfig) error

type runnerConfig struct {
	maxSteps         int
	store            Store
	observers        []Observer
	interruptHandler func(Interrupt) (Delta, bool)
	diagnostics      graphlog.Logger
}

var validate = validator.New()

func newRunnerConfig() *runnerConfig {
	return &runnerConfig{
		store:       newMemoryStore(),
		diagnostics: graphlog.NoOpLogger{},
	}
}

// WithMaxSteps limits execution to n super-steps before the run is aborted
// with ErrNoProgress-style termination. Zero (the default) means no limit;
// the scheduler does no cycle detection of its own, so cyclic graphs with no
// statically provable exit should set this explicitly.
func WithMaxSteps(n int) Option {
	return func(cfg *runnerConfig) error {
		cfg.maxSteps = n
		return nil
	}
}

// WithStore selects the checkpoint backend. The default, when this option is
// omitted, is an unconfigurable in-memory store private to the Runner.
func WithStore(s Store) Option {
	return func(cfg *runnerConfig) error {
		if s == nil {
			return &GraphError{Op: "WithStore", Cause: ErrNoStore}
		}
		cfg.store = s
		return nil
	}
}

// WithObservers registers the observer list notified of every lifecycle
// event. Options compose: calling WithObservers more than once
// appends rather than replacing.
func WithObservers(observers ...Observer) Option {
	return func(cfg *runnerConfig) error {
		cfg.observers = append(cfg.observers, observers...)
		return nil
	}
}

// WithInterruptHandler registers the callback invoked when a node returns an
// Interrupt. The handler returns a delta to merge before re-running the
// interrupting node, and whether it handled the interrupt at all; returning
// false is equivalent to no handler being registered (clean termination at
// the pre-interrupt state).
func WithInterruptHandler(handler func(Interrupt) (Delta, bool)) Option {
	return func(cfg *runnerConfig) error {
		cfg.interruptHandler = handler
		return nil
	}
}

// WithDiagnosticLogger overrides the sink that receives suppressed
// ObserverErrors and other internal diagnostics. The default discards
// everything.
func WithDiagnosticLogger(logger graphlog.Logger) Option {
	return func(cfg *runnerConfig) error {
		if logger != nil {
			cfg.diagnostics = logger
		}
		return nil
	}
}

// nameValidation is what go-playground/validator checks node and thread
// names against: non-empty and no embedded path separators (since
// file-backed stores use the name as a directory component). Leading and
// trailing whitespace is not checked.
type nameValidation struct {
	Name string `validate:"required,excludesall=/\\"`
}

func validateName(name string) error {
	return validate.Struct(nameValidation{Name: name})
}
