package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roster/internal/app"
	"github.com/roach88/roster/internal/auth"
	"github.com/roach88/roster/internal/roster"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Success(map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Error(ErrCodeInvalid, "phone is invalid", map[string]string{"field": "phone"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E006", resp.Error.Code)
	assert.Equal(t, "phone is invalid", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("Signed out"))
	assert.Equal(t, "Signed out\n", buf.String())
}

func TestOutputFormatter_TextUsesWriteText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(userView{&auth.User{UID: "u1", Email: "a@b.co"}}))
	assert.Equal(t, "Signed in as a@b.co (uid u1)\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error(ErrCodeGeneric, "boom", "ctx"))
			assert.Contains(t, buf.String(), "Error [E001]: boom")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details: ctx")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLogGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	formatter.VerboseLog("Fetched %d employee(s)", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "Fetched 2 employee(s)\n", errOut.String())

	formatter.Verbose = false
	formatter.VerboseLog("hidden")
	assert.NotContains(t, errOut.String(), "hidden")
}

func TestFail_Classifies(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{"validation", &roster.ValidationError{Field: "phone", Message: "invalid"}, ErrCodeInvalid, ExitFailure},
		{"request", &app.RequestError{Op: "login", Message: roster.FailureMessage}, ErrCodeRequest, ExitFailure},
		{"not signed in", auth.ErrNotSignedIn, ErrCodeNotSignedIn, ExitCommandError},
		{"missing uid", app.ErrMissingUID, ErrCodeMissingUID, ExitCommandError},
		{"not found", fmt.Errorf("%w: e9", errNotFound), ErrCodeNotFound, ExitFailure},
		{"other", errors.New("boom"), ErrCodeGeneric, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.Fail(tt.err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestFail_RequestErrorShowsMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	_ = formatter.Fail(&app.RequestError{Op: "create employee", Message: roster.FailureMessage})
	assert.Equal(t, "Error [E007]: Something went wrong!\n", buf.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", WrapExitError(ExitCommandError, "x", errors.New("y")))))
}

func TestEmployeeList_WriteText(t *testing.T) {
	list := newEmployeeList(map[string]roster.Employee{
		"e2": {UID: "e2", Name: "Taylor", Phone: "555-0100", Shift: roster.Friday},
		"e1": {UID: "e1", Name: "Alex", Phone: "555-0101", Shift: roster.Monday},
	})

	buf := &bytes.Buffer{}
	require.NoError(t, list.WriteText(buf))
	assert.Equal(t, ""+
		"UID  NAME    PHONE     SHIFT\n"+
		"e1   Alex    555-0101  Monday\n"+
		"e2   Taylor  555-0100  Friday\n", buf.String())

	buf.Reset()
	require.NoError(t, employeeList{}.WriteText(buf))
	assert.Equal(t, "No employees.\n", buf.String())
}
