package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the console logger shared by every binary. Production output is
// uncoloured and limited to info and above.
func New(service, environment string) zerolog.Logger {
	return NewWithWriter(os.Stdout, service, environment)
}

func NewWithWriter(out io.Writer, service, environment string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    environment == "production",
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", service).
		Str("env", environment).
		Logger()

	if environment == "production" {
		return logger.Level(zerolog.InfoLevel)
	}
	return logger.Level(zerolog.DebugLevel)
}
