package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrSamePlatform       = fmt.Errorf("platforms must differ")
	ErrUnknownPlatform    = fmt.Errorf("unknown platform")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrNoSearchResult     = fmt.Errorf("no search result")
	ErrDuplicateSong      = fmt.Errorf("song already in playlist")

	// Automation errors
	ErrSessionClosed = fmt.Errorf("automation session not open")
	ErrElementWait   = fmt.Errorf("element wait timed out")

	// Dataset errors
	ErrNoDataset     = fmt.Errorf("no dataset loaded")
	ErrDatasetExists = fmt.Errorf("dataset already exists")
	ErrUnlabeledRows = fmt.Errorf("dataset has unlabeled rows")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
