package runtime

import (
	"fmt"
	"strings"
)

// ExecExitError reports a command that ran inside a container and exited
// with a non-zero code.
type ExecExitError struct {
	Cmd      []string
	ExitCode int
}

func (e *ExecExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", strings.Join(e.Cmd, " "), e.ExitCode)
}
