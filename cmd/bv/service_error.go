// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/botvelocity/bv/internal/environment"
	"github.com/botvelocity/bv/internal/invoke"
	"github.com/botvelocity/bv/internal/issue"
	"github.com/botvelocity/bv/internal/logging"
	"github.com/botvelocity/bv/internal/orchestrator"
	"github.com/botvelocity/bv/internal/workflow"
	"github.com/botvelocity/bv/pkg/archive"
	"github.com/botvelocity/bv/pkg/entrypoint"
	"github.com/botvelocity/bv/pkg/project"
)

// ServiceError is an error that carries optional rendering information for
// the CLI layer. Always create via newServiceError to enforce the
// Err-must-be-non-nil invariant.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// failure wraps a workflow error with the catalog entry that explains it.
func failure(err error) error {
	if err == nil {
		return nil
	}
	return newServiceError(err, classifyError(err), "")
}

// classifyError maps a workflow error to its issue catalog entry, or 0 when
// no entry applies.
func classifyError(err error) issue.Id {
	var (
		conflict *workflow.ConflictError
		envErr   *environment.EnvironmentError
	)
	switch {
	case errors.As(err, &conflict):
		if filepath.Base(conflict.Path) == project.DescriptorFile {
			return issue.AlreadyInitializedId
		}
		return issue.ArtifactExistsId
	case errors.Is(err, project.ErrInvalidConfig) && errors.Is(err, fs.ErrNotExist):
		return issue.ProjectNotFoundId
	case errors.Is(err, project.ErrInvalidConfig), errors.Is(err, workflow.ErrValidationFailed):
		return issue.ConfigInvalidId
	case errors.Is(err, entrypoint.ErrEntrypoint), errors.Is(err, workflow.ErrNoDefaultEntrypoint):
		return issue.EntrypointNotFoundId
	case errors.Is(err, environment.ErrEnvironmentMissing):
		return issue.EnvironmentMissingId
	case errors.As(err, &envErr):
		return issue.EnvironmentCommandFailedId
	case errors.Is(err, archive.ErrIntegrity), errors.Is(err, workflow.ErrNotPackage):
		return issue.PackageIntegrityId
	case errors.Is(err, invoke.ErrInvocation):
		return issue.InvocationFailedId
	case errors.Is(err, workflow.ErrInvalidInput):
		return issue.InvalidInputId
	case errors.Is(err, orchestrator.ErrNotAuthenticated), errors.Is(err, orchestrator.ErrPermissionDenied):
		return issue.OrchestratorUnavailableId
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId
	default:
		return 0
	}
}

// renderServiceError renders a ServiceError in the CLI layer.
// It prints any styled message first, then, in verbose mode, the issue help section.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, verbose bool) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 || !verbose {
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render("dark")
		if renderErr != nil {
			logging.New(stderr, logging.Options{}).Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
}

// reportError prints err as one ERROR line, followed by the catalog help for
// known failure classes in verbose mode. Failures the command already printed
// produce no output.
func reportError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render(errorPrefix)+formatErrorForDisplay(err, verbose))

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(w, svcErr, verbose)
	}
}
