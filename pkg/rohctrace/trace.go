// Package rohctrace adapts the ROHC trace callback contract of spec §6
// (fn(priv, level, entity, profile_id, fmt, args)) onto logr.Logger, the
// way pkg/sfu exposes a package-level Logger defaulting to logr.Discard().
package rohctrace

import (
	"fmt"

	"github.com/go-logr/logr"
)

// Entity identifies which side of the ROHC pipe emitted a trace line.
type Entity int

const (
	Comp Entity = iota
	Decomp
)

func (e Entity) String() string {
	if e == Comp {
		return "comp"
	}
	return "decomp"
}

// Level mirrors the five levels spec §6 names for the trace callback.
type Level int

const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

// verbosity maps a trace Level onto logr's V(n) scale: logr has no named
// levels below Error, so Debug/Info/Notice/Warning collapse to increasing
// V-numbers and only Error uses logr's dedicated Error() call.
func (l Level) verbosity() int {
	switch l {
	case Debug:
		return 2
	case Info:
		return 1
	case Notice:
		return 0
	case Warning:
		return 0
	default:
		return 0
	}
}

// Callback is the language-neutral shape from spec §6.
type Callback func(priv interface{}, level Level, entity Entity, profileID uint16, format string, args ...interface{})

// Sink turns a logr.Logger into a Callback, and a Callback into a
// logr.Logger, so either call convention reaches the same trace sink.
type Sink struct {
	logger logr.Logger
}

// NewSink wraps logger. The zero Sink (NewSink(logr.Logger{})) discards
// everything, matching pkg/sfu's logr.Discard() default.
func NewSink(logger logr.Logger) *Sink {
	return &Sink{logger: logger}
}

// Emit is what compressor/decompressor call internally; it never panics on
// a Discard() sink.
func (s *Sink) Emit(level Level, entity Entity, profileID uint16, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log := s.logger.WithValues("entity", entity.String(), "profile", profileID)
	if level == Error {
		log.Error(nil, msg)
		return
	}
	log.V(level.verbosity()).Info(msg)
}

// AsCallback exposes Emit in the language-neutral shape of spec §6, for
// callers that supply fn(priv, level, entity, profile_id, fmt, args).
func (s *Sink) AsCallback() Callback {
	return func(_ interface{}, level Level, entity Entity, profileID uint16, format string, args ...interface{}) {
		s.Emit(level, entity, profileID, format, args...)
	}
}

// FromCallback adapts a language-neutral Callback into a logr.LogSink so
// legacy callers can still be handed to APIs that expect logr.Logger.
type callbackSink struct {
	cb     Callback
	entity Entity
	prof   uint16
	name   string
}

func FromCallback(cb Callback, entity Entity, profileID uint16) logr.Logger {
	return logr.New(&callbackSink{cb: cb, entity: entity, prof: profileID})
}

func (c *callbackSink) Init(logr.RuntimeInfo) {}

func (c *callbackSink) Enabled(int) bool { return true }

func (c *callbackSink) Info(level int, msg string, keysAndValues ...interface{}) {
	l := Notice
	switch {
	case level >= 2:
		l = Debug
	case level == 1:
		l = Info
	}
	c.cb(nil, l, c.entity, c.prof, "%s %v", msg, keysAndValues)
}

func (c *callbackSink) Error(_ error, msg string, keysAndValues ...interface{}) {
	c.cb(nil, Error, c.entity, c.prof, "%s %v", msg, keysAndValues)
}

func (c *callbackSink) WithValues(...interface{}) logr.LogSink { return c }
func (c *callbackSink) WithName(name string) logr.LogSink {
	cp := *c
	cp.name = name
	return &cp
}
