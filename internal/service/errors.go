package service

import "errors"

// --- Error Definitions ---
var (
	ErrAssignmentNotFound = errors.New("no active assignment for this client")
	// ErrConcurrentEdit means every retry of a mutation lost the version race.
	ErrConcurrentEdit   = errors.New("assignment was modified concurrently, retries exhausted")
	ErrInvalidCommand   = errors.New("invalid command")
	ErrInvalidRole      = errors.New("invalid mutator role")
	ErrTemplateNotFound = errors.New("program template not found")
	ErrClientNotFound   = errors.New("client user not found")
	ErrClientNotRole    = errors.New("user found but is not a client")
	ErrValidationFailed = errors.New("validation failed")

	ErrExerciseNotFound = errors.New("exercise not found")
	ErrExerciseExists   = errors.New("exercise with this name already exists")

	ErrInvalidShareToken = errors.New("invalid or expired share link")
	ErrArchiveNotFound   = errors.New("archived assignment not found")
)
