// Package devbox drives ephemeral remote compute sandboxes ("devboxes")
// through the fixed command sequence derived from a run's instruction pack.
//
// Defines a Provider interface and a Runloop HTTP implementation. The
// interface allows substituting a fake sandbox in tests without changing
// the adapter.
package devbox

import "context"

// Provider provisions sandboxes. Implementations must be safe for
// concurrent use; each run provisions its own sandbox, and runs may
// execute concurrently.
type Provider interface {
	// CreateDevbox provisions one ephemeral sandbox. The caller owns it
	// exclusively and must call Shutdown exactly once when done.
	CreateDevbox(ctx context.Context) (Devbox, error)
}

// Devbox is a handle to one provisioned sandbox.
type Devbox interface {
	// ID returns the provider-assigned sandbox identifier.
	ID() string

	// Exec runs a shell command to completion and returns its output.
	// A non-nil error means the command could not be executed at all;
	// command failure is reported through ExecResult.ExitCode.
	Exec(ctx context.Context, command string) (ExecResult, error)

	// Shutdown tears the sandbox down. Idempotency is not required;
	// callers invoke it exactly once.
	Shutdown(ctx context.Context) error
}

// ExecResult is the outcome of one executed command.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}
