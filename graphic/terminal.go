package graphic

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

// prepareTerminal clears TERMINFO when running under tmux, where termbox fails
// to load some terminfo entries. The returned func puts TERMINFO back.
func prepareTerminal() (func(), error) {
	prev, set := os.LookupEnv("TERMINFO")

	if !set || !strings.HasPrefix(os.Getenv("TERM"), "tmux") {
		return func() {}, nil
	}

	if err := os.Unsetenv("TERMINFO"); err != nil {
		return nil, errors.Wrap(err, "failed to clear TERMINFO")
	}

	return func() {
		os.Setenv("TERMINFO", prev)
	}, nil
}
