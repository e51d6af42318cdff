//go:build !windows

package tui

import (
	"os"
	"os/exec"
)

// bestEffortResetTTY restores terminal modes after bubbletea exits
// abnormally. No-op when stdin is not a terminal.
func bestEffortResetTTY() {
	fi, err := os.Stdin.Stat()
	if err != nil || (fi.Mode()&os.ModeCharDevice) == 0 {
		return
	}

	// Target /dev/tty directly so redirected stdin doesn't matter.
	_ = exec.Command("sh", "-lc", "stty sane < /dev/tty >/dev/null 2>&1 || true").Run()
}
