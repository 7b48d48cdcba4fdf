package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServerLogger returns the global logger tagged with one server's name.
func ServerLogger(server string) zerolog.Logger {
	return log.Logger.With().Str("server", server).Logger()
}
