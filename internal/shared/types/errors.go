package types

import "errors"

var (
	// ErrMissingConfig indicates a required configuration field is absent.
	ErrMissingConfig = errors.New("missing required configuration")

	// ErrPermissionDenied indicates an upstream auth/permission failure.
	// It is fatal and requires operator action; no retry is attempted.
	ErrPermissionDenied = errors.New("permission denied by upstream service")

	// ErrThrottled indicates the upstream rate-limited the request. The
	// collaborator degrades to an empty batch and the run is skipped.
	ErrThrottled = errors.New("upstream request throttled")
)
