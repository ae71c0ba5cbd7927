package cmd

import (
	"fmt"

	"github.com/mesdata/isaload/internal/config"
	"github.com/mesdata/isaload/internal/prompt"
)

// resolveSecret fills the sink password from an interactive prompt when the
// config file leaves it empty. The returned wipe zeroes the prompt buffer and
// clears the config copy; callers defer it so early aborts wipe too, and call
// it again as soon as the connection pool holds the credential. Running it
// twice is harmless.
func resolveSecret(cfg *config.Config) (wipe func(), err error) {
	var buf []byte

	if cfg.Sink.Password == "" && prompt.IsInteractive() {
		label := fmt.Sprintf("Password for %s@%s: ", cfg.Sink.User, cfg.Sink.Host)
		buf, err = prompt.Password(label)
		if err != nil {
			return nil, err
		}
		cfg.Sink.Password = string(buf)
	}

	return func() {
		prompt.Wipe(buf)
		cfg.Sink.Password = ""
	}, nil
}
