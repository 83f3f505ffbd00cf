package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/specialistvlad/promptgridgo/internal/app"
	"github.com/specialistvlad/promptgridgo/internal/config"
	"github.com/specialistvlad/promptgridgo/internal/registry"
	"github.com/specialistvlad/promptgridgo/internal/runerr"
)

// Exit codes returned by the binary.
const (
	ExitOK        = 0
	ExitFailed    = 1
	ExitUsage     = 2
	ExitBadGraph  = 3
	ExitCancelled = 130
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, runerr.ErrAborted), errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, config.ErrInvalid):
		return ExitUsage
	case errors.Is(err, runerr.ErrGraphNotFound),
		errors.Is(err, runerr.ErrInvalidGraphStructure),
		errors.Is(err, app.ErrProjectLoad):
		return ExitBadGraph
	default:
		return ExitFailed
	}
}

// Options are the process-level collaborators of a command run.
type Options struct {
	Out    io.Writer
	Err    io.Writer
	Lookup config.LookupFunc

	// Env is handed to nodes; nil means the process environment.
	Env     map[string]string
	Modules []registry.Module
}

// Execute parses args and runs the selected command.
func Execute(ctx context.Context, args []string, opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}

	root := NewRootCommand(&opts)
	root.SetArgs(args)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	return root.ExecuteContext(ctx)
}
