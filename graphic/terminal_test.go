package graphic

import (
	"os"
	"testing"
)

func TestPrepareTerminalUnderTmux(t *testing.T) {
	t.Setenv("TERM", "tmux-256color")
	t.Setenv("TERMINFO", "/usr/share/terminfo")

	restore, err := prepareTerminal()
	if err != nil {
		t.Fatal(err)
	}

	if _, set := os.LookupEnv("TERMINFO"); set {
		t.Error("TERMINFO still set under tmux")
	}

	restore()

	if got := os.Getenv("TERMINFO"); got != "/usr/share/terminfo" {
		t.Errorf("expected TERMINFO restored, got %q", got)
	}
}

func TestPrepareTerminalLeavesOthersAlone(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("TERMINFO", "/usr/share/terminfo")

	restore, err := prepareTerminal()
	if err != nil {
		t.Fatal(err)
	}
	defer restore()

	if got := os.Getenv("TERMINFO"); got != "/usr/share/terminfo" {
		t.Errorf("TERMINFO changed outside tmux: %q", got)
	}
}
