package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("not found")

// ConfigurationError reports a missing credential or setting.
type ConfigurationError struct {
	Setting string
	Msg     string
}

func (e ConfigurationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("%s not configured", e.Setting)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	switch {
	case e.Resource == "":
		return "not found"
	case e.ID == "":
		return fmt.Sprintf("%s not found", e.Resource)
	default:
		return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	}
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// RemoteServiceError carries the upstream status and body of a non-success response.
type RemoteServiceError struct {
	Service  string
	Endpoint string
	Status   int
	Body     string
}

func (e RemoteServiceError) Error() string {
	svc := e.Service
	if svc == "" {
		svc = "remote"
	}
	if e.Body == "" {
		return fmt.Sprintf("%s API error: %d", svc, e.Status)
	}
	return fmt.Sprintf("%s API error: %d - %s", svc, e.Status, e.Body)
}

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// ConflictError reports a row whose version moved under the writer.
type ConflictError struct {
	Resource string
	ID       string
}

func (e ConflictError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s conflict: modified concurrently", e.Resource)
	}
	return fmt.Sprintf("%s %s conflict: modified concurrently", e.Resource, e.ID)
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target ConfigurationError
	return errors.As(err, &target)
}

func IsRemote(err error) bool {
	var target RemoteServiceError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}
