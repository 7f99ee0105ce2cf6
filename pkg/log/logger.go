package log

import (
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	consoleTimeFormat = "15:04:05"
	// "goroutine 123 [running]:" fits in 32 bytes.
	stackBufSize       = 32
	goroutinePrefixLen = len("goroutine ")
)

var (
	Logger     zerolog.Logger
	level      = zerolog.InfoLevel
	stackPool  = sync.Pool{New: func() interface{} { return make([]byte, stackBufSize) }}
	goroutines = zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
		e.Str("goid", goroutineID())
	})
)

func init() {
	SetOutput(os.Stderr)
}

// goroutineID parses the current goroutine ID from the first stack line.
func goroutineID() string {
	buf, ok := stackPool.Get().([]byte)
	if !ok {
		return "unknown"
	}
	defer stackPool.Put(buf) //nolint:staticcheck

	n := runtime.Stack(buf, false)
	idx := goroutinePrefixLen
	start := idx
	for idx < n && buf[idx] >= '0' && buf[idx] <= '9' {
		idx++
	}
	if idx == start {
		return "unknown"
	}
	return string(buf[start:idx])
}

// newConsoleLogger builds the colored console logger used by both binaries.
func newConsoleLogger(out io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: consoleTimeFormat,
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("app", "csvgen").
		Logger().
		Hook(goroutines)
}

// SetOutput redirects the logger to out, keeping the current level.
// Standard streams get the console writer; any other writer receives JSON lines.
func SetOutput(out io.Writer) {
	if out == os.Stderr || out == os.Stdout {
		Logger = newConsoleLogger(out)
	} else {
		Logger = zerolog.New(out).Level(level).With().Timestamp().Str("app", "csvgen").Logger().Hook(goroutines)
	}

	// Set global logger
	log.Logger = Logger
}

// Info logs an info message.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error logs an error message.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn logs a warning message.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug logs a debug message.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs a fatal message and exits.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	level = zerolog.DebugLevel
	Logger = Logger.Level(level)
	log.Logger = Logger
}
