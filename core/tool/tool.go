// Package tool runs the external programs the handlers depend on
// (ffprobe, ffmpeg, exiftool) under a deadline.
package tool

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/ankit-chaubey/media-gps-surgery/core"
)

// Run executes name with args and returns its stdout. A positive timeout
// bounds the run; when it fires the process is killed and the result is a
// *core.ToolError with TimedOut set. A missing binary is a *core.ToolError
// wrapping exec.ErrNotFound.
func Run(ctx context.Context, name string, timeout time.Duration, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, &core.ToolError{Tool: name, Err: err}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, &core.ToolError{Tool: name, TimedOut: true, Err: ctx.Err()}
	}
	if err != nil {
		te := &core.ToolError{Tool: name, Stderr: lastLine(stderr.String()), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			te.ExitCode = exitErr.ExitCode()
		}
		return nil, te
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
