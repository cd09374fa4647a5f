// Package logging provides structured logging for dispatch cycles using bolt.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/domguard/domain/config"
)

var (
	root     *bolt.Logger
	rootOnce sync.Once
)

var levels = map[string]bolt.Level{
	"trace":   bolt.TRACE,
	"debug":   bolt.DEBUG,
	"info":    bolt.INFO,
	"warn":    bolt.WARN,
	"warning": bolt.WARN,
	"error":   bolt.ERROR,
}

// Config configures a logger.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn or error.
	Level string
	// Format is json or console.
	Format string
	// Output defaults to stderr so stdout stays machine-readable.
	Output io.Writer
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return FromSettings(config.Default().Logging, os.Stderr)
}

// FromSettings maps the logging section of a domguard config onto w.
func FromSettings(s config.LoggingConfig, w io.Writer) Config {
	return Config{Level: s.Level, Format: s.Format, Output: w}
}

// ParseLevel maps a level name to a bolt level. Unknown names map to info.
func ParseLevel(name string) bolt.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return bolt.INFO
}

// New builds a standalone logger.
func New(c Config) *bolt.Logger {
	out := c.Output
	if out == nil {
		out = os.Stderr
	}

	handler := bolt.Handler(bolt.NewConsoleHandler(out))
	if c.Format == config.LogFormatJSON {
		handler = bolt.NewJSONHandler(out)
	}
	return bolt.New(handler).SetLevel(ParseLevel(c.Level))
}

// Init installs the process logger. Later calls are ignored; use SetLevel to
// adjust verbosity afterwards.
func Init(c Config) {
	rootOnce.Do(func() {
		root = New(c)
	})
}

// Get returns the process logger, installing the default one if needed.
func Get() *bolt.Logger {
	Init(DefaultConfig())
	return root
}

// SetLevel changes the process logger level.
func SetLevel(name string) {
	Get().SetLevel(ParseLevel(name))
}

// Entry is a pending log event that accepts Fields.
type Entry struct {
	event *bolt.Event
}

// Wrap turns a bolt event into an Entry.
func Wrap(e *bolt.Event) *Entry {
	return &Entry{event: e}
}

// Add applies f and returns the entry.
func (e *Entry) Add(f Field) *Entry {
	e.event = f(e.event)
	return e
}

// Msg writes the entry with msg.
func (e *Entry) Msg(msg string) {
	e.event.Msg(msg)
}

// Send writes the entry without a message.
func (e *Entry) Send() {
	e.event.Send()
}

// Debug starts a debug entry on the process logger.
func Debug() *Entry { return Wrap(Get().Debug()) }

// Info starts an info entry on the process logger.
func Info() *Entry { return Wrap(Get().Info()) }

// Warn starts a warn entry on the process logger.
func Warn() *Entry { return Wrap(Get().Warn()) }

// Error starts an error entry on the process logger.
func Error() *Entry { return Wrap(Get().Error()) }
