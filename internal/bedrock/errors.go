package bedrock

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrRouting marks a failure caused by the inference profile itself rather
// than by the model or the service.
var ErrRouting = errors.New("inference profile routing failed")

// InvocationError is returned for any failed call to one model.
type InvocationError struct {
	Model  string
	Target string
	Err    error
}

func (e *InvocationError) Error() string {
	if e.Target != "" && e.Target != e.Model {
		return fmt.Sprintf("invoke %s via %s: %v", e.Model, e.Target, e.Err)
	}
	return fmt.Sprintf("invoke %s: %v", e.Model, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

type routingError struct {
	err error
}

func (e *routingError) Error() string { return e.err.Error() }

func (e *routingError) Unwrap() []error { return []error{ErrRouting, e.err} }

// classifyError tags routing failures so callers can match them with
// errors.Is(err, ErrRouting). Errors already tagged by the transport pass
// through untouched.
func classifyError(err error) error {
	if err == nil || errors.Is(err, ErrRouting) {
		return err
	}
	if isRoutingFailure(err) {
		return &routingError{err: err}
	}
	return err
}

func isRoutingFailure(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException":
			return true
		case "ValidationException", "AccessDeniedException":
			return mentionsInferenceProfile(apiErr.ErrorMessage())
		default:
			return false
		}
	}
	// Unclassified transport errors only carry text.
	return mentionsInferenceProfile(err.Error())
}

func mentionsInferenceProfile(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "inference-profile") || strings.Contains(msg, "inference profile")
}
