// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Factory opens a new backend context.
type Factory func() (Context, error)

type registration struct {
	name     string
	priority int
	factory  Factory
}

var (
	registryMu sync.RWMutex
	backends   = make(map[string]registration)
)

// Register registers a backend under name. Higher priorities are tried
// first by Open. Registering an existing name replaces it.
func Register(name string, priority int, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = registration{name: name, priority: priority, factory: factory}
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Available returns registered backend names, highest priority first.
func Available() []string {
	regs := sortedRegistrations()
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = r.name
	}
	return names
}

func sortedRegistrations() []registration {
	registryMu.RLock()
	defer registryMu.RUnlock()

	regs := make([]registration, 0, len(backends))
	for _, r := range backends {
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority > regs[j].priority
		}
		return regs[i].name < regs[j].name
	})
	return regs
}

// Open starts the first backend that initializes successfully. Backends
// named in preferred are tried first, in order, followed by the rest by
// priority. A backend whose initialization fails is skipped and the next
// one is tried.
func Open(preferred ...string) (Context, error) {
	regs := sortedRegistrations()
	order := make([]registration, 0, len(regs))
	seen := make(map[string]bool, len(regs))
	for _, name := range preferred {
		for _, r := range regs {
			if r.name == name && !seen[name] {
				order = append(order, r)
				seen[name] = true
			}
		}
		if !seen[name] {
			Logger().Warn("render: preferred backend not registered", "backend", name)
		}
	}
	for _, r := range regs {
		if !seen[r.name] {
			order = append(order, r)
		}
	}

	var errs []error
	for _, r := range order {
		ctx, err := r.factory()
		if err == nil {
			Logger().Info("render: backend selected", "backend", r.name)
			return ctx, nil
		}
		err = fmt.Errorf("%w: %s: %w", ErrRendererInitFailed, r.name, err)
		Logger().Warn("render: backend failed, trying next", "backend", r.name, "err", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(append([]error{ErrNoBackend}, errs...)...)
}
