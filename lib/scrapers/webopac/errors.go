package webopac

import (
	"errors"
	"fmt"
)

// TransientError covers the failure class worth retrying: network
// errors, timeouts, 5xx/429 responses and anti-automation
// interstitials.
type TransientError struct {
	Strategy StrategyKind
	Status   int
	Err      error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient fetch failure (%s, status %d): %v", e.Strategy, e.Status, e.Err)
	}
	return fmt.Sprintf("transient fetch failure (%s): %v", e.Strategy, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RenderTimeoutError means a browser wait exceeded its bound. The
// screenshot path, when non-empty, points at a capture of the page
// taken at the moment of the timeout.
type RenderTimeoutError struct {
	Step       string
	Screenshot string
	Err        error
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("render timed out waiting for %q: %v", e.Step, e.Err)
}

func (e *RenderTimeoutError) Unwrap() error { return e.Err }

// ParseIncompleteError means the normalizer found nothing extractable
// at all. A record with every field unset is indistinguishable from a
// broken parse, so this is a hard failure.
type ParseIncompleteError struct {
	Context string
}

func (e *ParseIncompleteError) Error() string {
	return fmt.Sprintf("no extractable fields in %s page", e.Context)
}

// AuthRequiredError reports that the reservation flow hit the
// login-required modal. It is a report, not a retryable failure.
type AuthRequiredError struct {
	CatalogID string
	ModalText string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("reservation of %s requires a logged-in session: %s", e.CatalogID, e.ModalText)
}

// UnsupportedWorkflowError reports a capability gap: the mail-order
// 404, or a reservation modal whose content matches no known pattern.
type UnsupportedWorkflowError struct {
	Workflow string
	Reason   string
}

func (e *UnsupportedWorkflowError) Error() string {
	return fmt.Sprintf("workflow %q is not supported: %s", e.Workflow, e.Reason)
}

var errInterstitial = errors.New("anti-automation interstitial served")

type statusError int

func (e statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", int(e))
}

func errStatus(status int) error { return statusError(status) }

func isTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

func isRenderTimeout(err error) bool {
	var timeout *RenderTimeoutError
	return errors.As(err, &timeout)
}
