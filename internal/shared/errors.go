package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredential  = fmt.Errorf("invalid credential")

	// Session lifecycle errors
	ErrSessionInitFailed     = fmt.Errorf("session initialization failed")
	ErrSessionNotInitialized = fmt.Errorf("session not initialized")
	ErrMissingSessionID      = fmt.Errorf("missing session id")
	ErrSessionNotFound       = fmt.Errorf("session not found")

	// Remote endpoint errors
	ErrRemoteHandshake     = fmt.Errorf("remote handshake failed")
	ErrRemoteCall          = fmt.Errorf("remote call failed")
	ErrRemoteProcedure     = fmt.Errorf("remote procedure error")
	ErrUnparseableResponse = fmt.Errorf("unparseable response")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrToolNotFound       = fmt.Errorf("tool not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
