// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var once sync.Once

// Init sets up the global logger once. Later calls are ignored.
func Init(appName, logLevel string) {
	once.Do(func() {
		initLogger(os.Stdout, appName, logLevel)
		log.Info().Msg("Logger initialized!")
	})
}

func initLogger(out io.Writer, appName, logLevel string) {
	level, err := ParseLevel(logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		parts := strings.Split(file, "/")
		return parts[len(parts)-1] + ":" + strconv.Itoa(line)
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "02-01-2006 15:04:05.000",
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("%-6s", i))
		},
		FieldsExclude: []string{"applicationName"},
	}).With().Timestamp().Caller().Str("applicationName", appName).Logger()

	if err != nil {
		log.Warn().Str("level", logLevel).Msg("Log level not recognised, defaulting to WARN")
	}
}

// ParseLevel maps the upper-case level names used in configuration to zerolog levels.
func ParseLevel(logLevel string) (zerolog.Level, error) {
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "INFO":
		return zerolog.InfoLevel, nil
	case "WARN", "":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	case "FATAL":
		return zerolog.FatalLevel, nil
	case "PANIC":
		return zerolog.PanicLevel, nil
	case "DISABLED":
		return zerolog.Disabled, nil
	}
	return zerolog.NoLevel, fmt.Errorf("logger: incorrect log level %q", logLevel)
}
