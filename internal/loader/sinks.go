// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package loader

import (
	"context"
	"log/slog"
	"sync"
)

// sinkTable maps the opaque user word handed to C plugins back to the host
// logger the plugin was constructed with. Ids are never reused.
type sinkTable struct {
	mu      sync.RWMutex
	next    uintptr
	loggers map[uintptr]*slog.Logger
}

func newSinkTable() *sinkTable {
	return &sinkTable{loggers: make(map[uintptr]*slog.Logger)}
}

// register stores logger and returns its id. Ids start at 1.
func (t *sinkTable) register(logger *slog.Logger) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.loggers[t.next] = logger
	return t.next
}

func (t *sinkTable) release(id uintptr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.loggers, id)
}

// dispatch writes msg to the logger registered under id. Unknown ids and
// nil loggers drop the record.
func (t *sinkTable) dispatch(id uintptr, level int32, msg string) {
	t.mu.RLock()
	logger := t.loggers[id]
	t.mu.RUnlock()
	if logger == nil {
		return
	}
	logger.Log(context.Background(), slog.Level(level), msg)
}

var sinks = newSinkTable()
