package export

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"deckeditor/pkg/logger"
)

// Runner produces the PDF. CommandRunner is the production implementation.
type Runner interface {
	Run(ctx context.Context) error
}

// waitDelay bounds how long Run waits for output pipes held by grandchildren
// after the command has been killed.
const waitDelay = 5 * time.Second

// CommandRunner executes the export command in Dir with a timeout. On timeout the
// whole process group is killed, so browsers started by the command go too.
type CommandRunner struct {
	Command []string
	Dir     string
	Timeout time.Duration
}

// NewCommandRunner splits a command line on whitespace.
func NewCommandRunner(command, dir string, timeout time.Duration) *CommandRunner {
	return &CommandRunner{Command: strings.Fields(command), Dir: dir, Timeout: timeout}
}

func (r *CommandRunner) Run(ctx context.Context) error {
	if len(r.Command) == 0 {
		return errors.New("export command is empty")
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	cmd.Dir = r.Dir
	killProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	start := time.Now()
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("export timed out after %s", r.Timeout)
		}
		logger.Sugar.Errorf("Export command failed: %v\n%s", err, tail(out, 2000))
		return fmt.Errorf("export failed: %w", err)
	}
	logger.Sugar.Infof("Export finished in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
