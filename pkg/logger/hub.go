package logger

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

type entry struct {
	id   int
	core zapcore.Core
}

// coreHub is a mutable tee. Loggers built on it see cores added later.
type coreHub struct {
	mu     sync.RWMutex
	nextID int
	cores  []entry
}

func (h *coreHub) add(c zapcore.Core) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.cores = append(h.cores, entry{id: h.nextID, core: c})
	return h.nextID
}

func (h *coreHub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.cores {
		if e.id == id {
			h.cores = append(h.cores[:i:i], h.cores[i+1:]...)
			return
		}
	}
}

func (h *coreHub) snapshot() []entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cores
}

// hubCore forwards to every core in the hub at write time.
type hubCore struct {
	hub    *coreHub
	fields []zapcore.Field
}

func (c *hubCore) Enabled(l zapcore.Level) bool {
	for _, e := range c.hub.snapshot() {
		if e.core.Enabled(l) {
			return true
		}
	}
	return false
}

func (c *hubCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &hubCore{hub: c.hub, fields: merged}
}

func (c *hubCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *hubCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	var err error
	for _, e := range c.hub.snapshot() {
		if !e.core.Enabled(ent.Level) {
			continue
		}
		target := e.core
		if len(c.fields) > 0 {
			target = target.With(c.fields)
		}
		err = multierr.Append(err, target.Write(ent, fields))
	}
	return err
}

func (c *hubCore) Sync() error {
	var err error
	for _, e := range c.hub.snapshot() {
		err = multierr.Append(err, e.core.Sync())
	}
	return err
}
