package wix

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"github.com/wixpack/wixpack/pkg/contexts/ctxlog"
)

// maxLineBytes caps how long a single stdout line may grow before
// the stream is logged as truncated. The wix tools emit short
// diagnostic lines; a megabyte of slack is plenty.
const maxLineBytes = 1024 * 1024

// ExitError is returned when a wix tool runs but exits non-zero. A
// signal or otherwise abnormal exit reports Code -1.
type ExitError struct {
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
}

// SpawnError is returned when a wix tool cannot be started at all,
// commonly because the binary is missing or not executable.
type SpawnError struct {
	Tool string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning %s: %v", e.Tool, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// execLog runs a wix tool in the build dir and streams its stdout,
// line by line and in emission order, to the context logger. It
// blocks until the tool exits. Failures are never retried: a failing
// tool means a broken build configuration or environment, and that
// must surface, not be masked.
func (wo *Tool) execLog(ctx context.Context, argv0 string, args ...string) error {
	tool := filepath.Base(argv0)
	logger := log.With(ctxlog.FromContext(ctx), "tool", tool)

	cmd := wo.execCC(ctx, argv0, args...)
	cmd.Dir = wo.buildDir

	level.Debug(logger).Log(
		"msg", "execing",
		"cmd", strings.Join(cmd.Args, " "),
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &SpawnError{Tool: tool, Err: err}
	}
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return &SpawnError{Tool: tool, Err: err}
	}

	// Drain stdout on its own goroutine so the child never stalls on
	// a full pipe, and join it before Wait so no trailing output is
	// dropped.
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			level.Info(logger).Log("msg", scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			// Keep consuming to EOF even when line scanning gives
			// up. Abandoning the pipe would let it fill, block the
			// child, and hang Wait below.
			level.Info(logger).Log(
				"msg", "stdout stream truncated",
				"err", err,
			)
			io.Copy(io.Discard, stdout)
		}
	}()
	<-done

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return errors.Wrapf(
				&ExitError{Tool: tool, Code: exitErr.ExitCode()},
				"stderr=%s", strings.TrimSpace(stderr.String()),
			)
		}
		return errors.Wrapf(err, "waiting on %s", tool)
	}

	return nil
}
