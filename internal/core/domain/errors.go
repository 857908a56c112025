package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrSourceNotFound      = errors.New("build descriptor not found")
	ErrMalformedDescriptor = errors.New("malformed build descriptor")
	ErrBranchNotFound      = errors.New("branch not found")
	ErrBuildFailed         = errors.New("build failed")
	ErrPushFailed          = errors.New("push failed")
	ErrAmbiguousState      = errors.New("ambiguous dns state")
	ErrDeleteNotConfirmed  = errors.New("dns record deletion not confirmed")
	ErrAuthFailed          = errors.New("dns provider authentication failed")
)

// BuildFailedError is returned when the build backend exits with a non-zero code.
// The exit code is reported verbatim so the CLI can exit with it.
type BuildFailedError struct {
	ExitCode int
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build failed with exit code %d", e.ExitCode)
}

func (e *BuildFailedError) Is(target error) bool {
	return target == ErrBuildFailed
}

// ReconcileStep names the step of the per-subdomain reconciliation.
type ReconcileStep string

const (
	StepAuth   ReconcileStep = "auth"
	StepLookup ReconcileStep = "lookup"
	StepDelete ReconcileStep = "delete"
	StepVerify ReconcileStep = "verify"
	StepCreate ReconcileStep = "create"
)

// ReconcileError reports which subdomain and which step failed.
type ReconcileError struct {
	Subdomain string
	Step      ReconcileStep
	Err       error
}

func (e *ReconcileError) Error() string {
	if e.Subdomain == "" {
		return fmt.Sprintf("dns %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("dns %s of `%s`: %v", e.Step, e.Subdomain, e.Err)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}
