package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/roster/internal/app"
	"github.com/roach88/roster/internal/auth"
	"github.com/roach88/roster/internal/roster"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Request failed or was rejected (bad credentials, invalid employee)
	ExitCommandError = 2 // Command error (bad config, database unavailable, not signed in)
)

// Error codes reported in the JSON envelope and in text output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Config file unreadable or invalid
	ErrCodeDatabase    = "E003" // Database could not be opened
	ErrCodeNotSignedIn = "E004" // No signed-in user
	ErrCodeNotFound    = "E005" // Employee not found
	ErrCodeInvalid     = "E006" // Employee failed validation
	ErrCodeRequest     = "E007" // Remote request failed
	ErrCodeMissingUID  = "E008" // Employee uid not given
	ErrCodeTestFailed  = "E009" // One or more harness scenarios failed
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// textWriter is implemented by payloads with a custom text rendering.
type textWriter interface {
	WriteText(w io.Writer) error
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if tw, ok := data.(textWriter); ok {
		return tw.WriteText(f.Writer)
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports err through the formatter and returns the matching ExitError.
func (f *OutputFormatter) Fail(err error) error {
	code, exit, details := classify(err)
	_ = f.Error(code, errorMessage(err), details)
	return WrapExitError(exit, code, err)
}

// classify maps an error to its error code, exit code, and details.
func classify(err error) (code string, exit int, details any) {
	var verr *roster.ValidationError
	var rerr *app.RequestError
	switch {
	case errors.As(err, &verr):
		return ErrCodeInvalid, ExitFailure, map[string]string{"field": verr.Field}
	case errors.As(err, &rerr):
		return ErrCodeRequest, ExitFailure, map[string]string{"op": rerr.Op}
	case errors.Is(err, auth.ErrNotSignedIn):
		return ErrCodeNotSignedIn, ExitCommandError, nil
	case errors.Is(err, app.ErrMissingUID):
		return ErrCodeMissingUID, ExitCommandError, nil
	case errors.Is(err, errNotFound):
		return ErrCodeNotFound, ExitFailure, nil
	}
	return ErrCodeGeneric, ExitFailure, nil
}

func errorMessage(err error) string {
	var rerr *app.RequestError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	if errors.Is(err, auth.ErrNotSignedIn) {
		return "not signed in: run roster login first"
	}
	return err.Error()
}
