package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatterSuccessJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]string{"target": "~Top|A<b>"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Contains(t, buf.String(), "~Top|A<b>", "HTML characters are not escaped")
}

func TestOutputFormatterSuccessText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success("done"))
	assert.Equal(t, "done\n", buf.String())
}

func TestOutputFormatterError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Error("E202", "unknown annotation class", map[string]int{"index": 1}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E202", resp.Error.Code)

	buf.Reset()
	f = &OutputFormatter{Format: "text", Writer: buf, Verbose: true}
	require.NoError(t, f.Error("E005", "path not found", "x"))
	assert.Equal(t, "Error [E005]: path not found\nDetails: x\n", buf.String())
}

func TestOutputFormatterFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Failure(CheckResult{Files: 1}, "E209", "bad"))

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
		Error  CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Files)
	assert.Equal(t, "E209", resp.Error.Code)
}

func TestVerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: false}
	f.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	f.Verbose = true
	f.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String())

	f.ErrWriter = nil
	assert.Equal(t, out, f.GetErrWriter())
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "inner", errors.New("cause")))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "outer: inner: cause", wrapped.Error())
}
