package tool

import (
	"strings"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Engine is a loaded set of codecs. It is acquired once by the host, shared
// by every session and released exactly once; sessions holding it fail with
// StatusReleased afterwards.
type Engine struct {
	tools    map[string]Tool
	released atomic.Bool
	sessions atomic.Int64
}

// Load snapshots the registered codecs. Extra tools override registered ones
// for the formats they declare.
func Load(extra ...Tool) (*Engine, Status) {
	tools := snapshot()
	for _, t := range extra {
		for _, name := range t.Formats() {
			tools[strings.ToLower(name)] = t
		}
	}
	if len(tools) == 0 {
		return nil, StatusUnavailable
	}
	log.Debugf("archive engine loaded with %d formats", len(tools))
	return &Engine{tools: tools}, StatusOK
}

// Tool returns the codec of a format.
func (e *Engine) Tool(format string) (Tool, Status) {
	if e.released.Load() {
		return nil, StatusReleased
	}
	t, ok := e.tools[strings.ToLower(format)]
	if !ok {
		return nil, StatusUnsupported
	}
	return t, StatusOK
}

// Formats lists the format names the engine can read.
func (e *Engine) Formats() []string {
	ret := make([]string, 0, len(e.tools))
	for name := range e.tools {
		ret = append(ret, name)
	}
	return ret
}

// Check reports StatusReleased once the engine is gone.
func (e *Engine) Check() Status {
	if e.released.Load() {
		return StatusReleased
	}
	return StatusOK
}

// Acquire registers a session. The returned func must be called once when
// the session closes.
func (e *Engine) Acquire() (func(), Status) {
	if e.released.Load() {
		return nil, StatusReleased
	}
	e.sessions.Add(1)
	var done atomic.Bool
	return func() {
		if done.CompareAndSwap(false, true) {
			e.sessions.Add(-1)
		}
	}, StatusOK
}

// Sessions is the number of sessions not yet closed.
func (e *Engine) Sessions() int64 {
	return e.sessions.Load()
}

// Release marks the engine released. It reports false when it was already
// released.
func (e *Engine) Release() bool {
	if !e.released.CompareAndSwap(false, true) {
		return false
	}
	if n := e.sessions.Load(); n > 0 {
		log.Warnf("archive engine released with %d open sessions", n)
	}
	return true
}
