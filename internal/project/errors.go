package project

import "errors"

var (
	// ErrNotFound means the referenced project, version or asset does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation covers out-of-range indexes, unsupported content types
	// and missing required fields.
	ErrValidation = errors.New("validation failed")

	// ErrDeploymentFailed means the object-store write during publish
	// failed; the deployed pointer was left untouched.
	ErrDeploymentFailed = errors.New("deployment failed")

	// ErrUpstreamUnavailable means an external collaborator (object store,
	// domain registry, generator, captioner) failed or timed out.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrPersistenceFailed means the durable write of the project store
	// itself failed. Always fatal to the operation, never swallowed.
	ErrPersistenceFailed = errors.New("persistence failed")
)
