package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"securequiz/internal/observability"
)

// Level is the minimum severity a component logger writes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps debug/info/warn/error to a Level, defaulting to info.
func ParseLevel(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Options configures the process-wide sink used by component loggers.
type Options struct {
	Level  string
	Format string // text or json
	Output io.Writer
}

type sink struct {
	mu         sync.Mutex
	level      Level
	out        io.Writer
	structured *observability.Logger
	now        func() time.Time
}

var defaultSink = &sink{level: LevelInfo, out: os.Stderr, now: time.Now}

// Configure replaces the shared sink settings. Existing component loggers pick
// up the change on their next call.
func Configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	var structured *observability.Logger
	if strings.EqualFold(opts.Format, "json") {
		structured = observability.NewLogger(observability.LogConfig{
			Level:  opts.Level,
			Format: "json",
			Output: out,
		})
	}
	defaultSink.mu.Lock()
	defaultSink.level = ParseLevel(opts.Level)
	defaultSink.out = out
	defaultSink.structured = structured
	defaultSink.mu.Unlock()
}

// ComponentLogger writes "2006-01-02 15:04:05 [LEVEL] [Component] file:line - msg" lines.
type ComponentLogger struct {
	sink      *sink
	component string
	logID     string
}

// NewComponentLogger returns the application logger scoped to component.
func NewComponentLogger(component string) *ComponentLogger {
	return &ComponentLogger{sink: defaultSink, component: component}
}

func newComponentLoggerTo(out io.Writer, level Level, component string, now func() time.Time) *ComponentLogger {
	return &ComponentLogger{
		sink:      &sink{level: level, out: out, now: now},
		component: component,
	}
}

// WithLogID returns a copy that tags each line with logID.
func (l *ComponentLogger) WithLogID(logID string) Logger {
	if l == nil {
		return Nop()
	}
	clone := *l
	clone.logID = logID
	return &clone
}

func (l *ComponentLogger) Debug(format string, args ...any) { l.write(LevelDebug, format, args...) }
func (l *ComponentLogger) Info(format string, args ...any)  { l.write(LevelInfo, format, args...) }
func (l *ComponentLogger) Warn(format string, args ...any)  { l.write(LevelWarn, format, args...) }
func (l *ComponentLogger) Error(format string, args ...any) { l.write(LevelError, format, args...) }

func (l *ComponentLogger) write(level Level, format string, args ...any) {
	if l == nil || l.sink == nil {
		return
	}
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if level < s.level {
		return
	}

	message := Sanitize(fmt.Sprintf(format, args...))
	component := l.component
	if component == "" {
		component = "Quiz"
	}

	if s.structured != nil {
		fields := []any{"component", component}
		if l.logID != "" {
			fields = append(fields, "log_id", l.logID)
		}
		scoped := s.structured.With(fields...)
		switch level {
		case LevelDebug:
			scoped.Debug(message)
		case LevelWarn:
			scoped.Warn(message)
		case LevelError:
			scoped.Error(message)
		default:
			scoped.Info(message)
		}
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}
	if l.logID != "" {
		message = "logid=" + l.logID + " " + message
	}
	fmt.Fprintf(s.out, "%s [%s] [%s] %s:%d - %s\n",
		s.now().Format("2006-01-02 15:04:05"), level, component, file, line, message)
}
