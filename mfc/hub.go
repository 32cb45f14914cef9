package mfc

import (
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/opencryo/go-mfc/logger"
)

// Hub is a named collection of drivers for orchestration code that manages
// several instruments during a measurement campaign.
//
// A Hub is safe for concurrent use. It owns no device state of its own; each
// registered driver keeps its own handle and lock, so operations on
// different drivers proceed in parallel.
type Hub struct {
	drivers *xsync.MapOf[string, Driver]
	logger  logger.Logger
}

// NewHub creates an empty Hub. A nil log falls back to the package default
// logger.
func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Hub{
		drivers: xsync.NewMapOf[string, Driver](),
		logger:  log,
	}
}

// Register adds a driver under the given name.
// It returns ErrDriverExists when the name is already taken.
func (h *Hub) Register(name string, driver Driver) error {
	if _, loaded := h.drivers.LoadOrStore(name, driver); loaded {
		return fmt.Errorf("%w: %s", ErrDriverExists, name)
	}
	h.logger.Debug("driver registered", "name", name)

	return nil
}

// Get returns the driver registered under name.
func (h *Hub) Get(name string) (Driver, bool) {
	return h.drivers.Load(name)
}

// Remove removes the driver registered under name without closing it.
func (h *Hub) Remove(name string) {
	h.drivers.Delete(name)
}

// Len returns the number of registered drivers.
func (h *Hub) Len() int {
	return h.drivers.Size()
}

// Each calls fn for every registered driver until fn returns false.
func (h *Hub) Each(fn func(name string, driver Driver) bool) {
	h.drivers.Range(fn)
}

// CloseAll closes every registered driver and removes it from the hub.
// It returns the joined errors of all failed Close calls.
func (h *Hub) CloseAll() error {
	var errs []error

	h.drivers.Range(func(name string, driver Driver) bool {
		if err := driver.Close(); err != nil {
			h.logger.Error("driver close failed", "name", name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		h.drivers.Delete(name)

		return true
	})

	return errors.Join(errs...)
}
