package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Level selects how much of the diagnostic stream reaches the output.
// The zero value means "unset" and resolves to LevelInfo.
type Level int

const (
	LevelError Level = iota + 1
	LevelWarn
	LevelInfo
	LevelDebug
	LevelVerbose
)

func (l Level) letter() string {
	switch l {
	case LevelError:
		return "E"
	case LevelWarn:
		return "W"
	case LevelInfo:
		return "I"
	case LevelDebug:
		return "D"
	case LevelVerbose:
		return "V"
	default:
		return "?"
	}
}

var styles = map[Level]lipgloss.Style{
	LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
}

// Options configures a Logger. Zero values pick stdout, LevelInfo, no color.
type Options struct {
	Writer io.Writer
	Level  Level
	Color  bool
}

// Logger writes serial-console style diagnostic lines:
//
//	I (1234) app: hello
//
// severity letter, milliseconds since boot, component tag, message. It is
// safe for concurrent use by many tasks; lines never interleave.
type Logger struct {
	mu    sync.Mutex
	w     io.Writer
	level Level
	color bool
	start time.Time
	now   func() time.Time // replaced in tests
}

// New creates a Logger whose timestamps count from now.
func New(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	lv := opts.Level
	if lv == 0 {
		lv = LevelInfo
	}
	return &Logger{
		w:     w,
		level: lv,
		color: opts.Color,
		start: time.Now(),
		now:   time.Now,
	}
}

// SetLevel changes the output threshold at runtime.
func (l *Logger) SetLevel(lv Level) {
	l.mu.Lock()
	l.level = lv
	l.mu.Unlock()
}

// Level reports the current output threshold.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) Errorf(tag, format string, args ...any)   { l.logf(LevelError, tag, format, args...) }
func (l *Logger) Warnf(tag, format string, args ...any)    { l.logf(LevelWarn, tag, format, args...) }
func (l *Logger) Infof(tag, format string, args ...any)    { l.logf(LevelInfo, tag, format, args...) }
func (l *Logger) Debugf(tag, format string, args ...any)   { l.logf(LevelDebug, tag, format, args...) }
func (l *Logger) Verbosef(tag, format string, args ...any) { l.logf(LevelVerbose, tag, format, args...) }

func (l *Logger) logf(lv Level, tag, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lv > l.level {
		return
	}
	ms := l.now().Sub(l.start).Milliseconds()
	line := fmt.Sprintf("%s (%d) %s: %s", lv.letter(), ms, tag, fmt.Sprintf(format, args...))
	if l.color {
		if st, ok := styles[lv]; ok {
			line = st.Render(line)
		}
	}
	fmt.Fprintln(l.w, line)
}
