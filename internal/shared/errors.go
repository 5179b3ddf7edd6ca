package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session-defining errors
	ErrConnection       = fmt.Errorf("connection error")
	ErrProtocol         = fmt.Errorf("protocol error")
	ErrGenerationFailed = fmt.Errorf("course generation failed")
	ErrMissingCourseID  = fmt.Errorf("missing course id")
	ErrFetch            = fmt.Errorf("fetch error")
	ErrAPIRequest       = fmt.Errorf("API request failed")

	// Action-scoped errors
	ErrMutation       = fmt.Errorf("mutation error")
	ErrActionRejected = fmt.Errorf("action not allowed")

	// Transport errors
	ErrNotConnected  = fmt.Errorf("channel not connected")
	ErrChannelClosed = fmt.Errorf("channel closed")
	ErrStopped       = fmt.Errorf("controller stopped")

	// Input validation errors
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrEmptyDescription = fmt.Errorf("%w: description is empty", ErrInvalidInput)
	ErrInvalidLevel     = fmt.Errorf("%w: unknown level", ErrInvalidInput)
	ErrMissingArgument  = fmt.Errorf("missing required argument")
	ErrNotFound         = fmt.Errorf("not found")
)
