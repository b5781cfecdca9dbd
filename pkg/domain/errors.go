package common

import (
	"fmt"
)

// Error types for type assertions
type ErrInvalidArgument struct {
	message string
}

func (e *ErrInvalidArgument) Error() string {
	return e.message
}

type ErrNoInfoAvailable struct {
	message string
}

func (e *ErrNoInfoAvailable) Error() string {
	return e.message
}

// ErrNoReplayData indicates a loadable finished loading but the source had no
// replay data for it. Analysis methods refuse such replays instead of
// returning a silent zero.
type ErrNoReplayData struct {
	message string
}

func (e *ErrNoReplayData) Error() string {
	return e.message
}

// ErrNoLoader indicates an operation required api access but the surrounding
// facade was constructed without an api key.
type ErrNoLoader struct {
	message string
}

func (e *ErrNoLoader) Error() string {
	return e.message
}

type ErrUnloaded struct {
	message string
}

func (e *ErrUnloaded) Error() string {
	return e.message
}

func NewErrInvalidArgument(message string) error {
	return &ErrInvalidArgument{message: message}
}

func NewErrInvalidArgumentf(format string, args ...interface{}) error {
	return &ErrInvalidArgument{message: fmt.Sprintf(format, args...)}
}

func NewErrNoInfoAvailable(resource string, fieldName string, value interface{}) error {
	return &ErrNoInfoAvailable{message: fmt.Sprintf("no %s info available for %s %v", resource, fieldName, value)}
}

func NewErrNoReplayData(replay string) error {
	return &ErrNoReplayData{message: fmt.Sprintf("replay %s has no replay data", replay)}
}

func NewErrNoLoader(operation string) error {
	return &ErrNoLoader{message: fmt.Sprintf("%s requires api access, but no api key was provided", operation)}
}

func NewErrUnloaded(loadable string) error {
	return &ErrUnloaded{message: fmt.Sprintf("%s must be loaded before use", loadable)}
}

// IsInvalidArgumentError checks if an error is an invalid argument error
func IsInvalidArgumentError(err error) bool {
	_, ok := err.(*ErrInvalidArgument)
	return ok
}

// IsNoInfoAvailableError checks if an error is a no info available error
func IsNoInfoAvailableError(err error) bool {
	_, ok := err.(*ErrNoInfoAvailable)
	return ok
}

// IsNoReplayDataError checks if an error is a no replay data error
func IsNoReplayDataError(err error) bool {
	_, ok := err.(*ErrNoReplayData)
	return ok
}

// IsNoLoaderError checks if an error is a no loader error
func IsNoLoaderError(err error) bool {
	_, ok := err.(*ErrNoLoader)
	return ok
}

// IsUnloadedError checks if an error is an unloaded error
func IsUnloadedError(err error) bool {
	_, ok := err.(*ErrUnloaded)
	return ok
}
