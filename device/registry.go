// SPDX-License-Identifier: EPL-2.0

package device

import (
	"fmt"
	"slices"
	"sync"

	"github.com/decred/slog"
)

// Registry keeps the enumerated devices and the selection for each role.
// It is safe for concurrent use; callers get copies.
type Registry struct {
	enum Enumerator
	log  slog.Logger

	mtx       sync.RWMutex
	lists     map[Direction][]Device
	selected  map[Role]int
	enabled   map[Role]bool
	listeners []func(Role, Device)
}

// NewRegistry creates an empty registry. Call Refresh to populate it.
func NewRegistry(enum Enumerator, log slog.Logger) *Registry {
	if log == nil {
		log = slog.Disabled
	}
	r := &Registry{
		enum:     enum,
		log:      log,
		lists:    make(map[Direction][]Device),
		selected: make(map[Role]int),
		enabled:  make(map[Role]bool),
	}
	for _, role := range Roles {
		r.selected[role] = -1
		r.enabled[role] = true
	}
	return r
}

// Refresh discards the device lists and rebuilds them from the platform.
// Selections keep their position when it still exists, otherwise they fall
// back to the system default or the first device, or to Null for an empty
// list. Listeners hear about every role whose device changed.
func (r *Registry) Refresh() error {
	all, err := r.enum.Devices()
	if err != nil {
		return fmt.Errorf("enumerate devices: %w", err)
	}

	lists := map[Direction][]Device{}
	for _, d := range all {
		for _, dir := range []Direction{Input, Output} {
			if d.Supports(dir) {
				lists[dir] = append(lists[dir], d)
			}
		}
	}

	r.mtx.Lock()
	before := r.snapshotLocked()
	r.lists = lists
	for _, role := range Roles {
		list := lists[role.Direction()]
		idx := r.selected[role]
		switch {
		case len(list) == 0:
			idx = -1
		case idx < 0:
			idx = initialIndex(list, role)
		case idx >= len(list):
			idx = 0
		}
		r.selected[role] = idx
	}
	after := r.snapshotLocked()
	listeners := slices.Clone(r.listeners)
	r.mtx.Unlock()

	r.log.Debugf("Refreshed devices: %d inputs, %d outputs",
		len(lists[Input]), len(lists[Output]))
	r.notify(listeners, before, after)
	return nil
}

// initialIndex picks the system default for the input and physical roles.
// The cable starts on the first output.
func initialIndex(list []Device, role Role) int {
	for i, d := range list {
		switch {
		case role == RoleInput && d.DefaultInput:
			return i
		case role == RolePhysical && d.DefaultOutput:
			return i
		}
	}
	return 0
}

// List returns a copy of the devices for dir, in enumeration order.
func (r *Registry) List(dir Direction) []Device {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return append([]Device(nil), r.lists[dir]...)
}

// Selected returns the device for role, or Null when none is available.
func (r *Registry) Selected(role Role) Device {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.selectedLocked(role)
}

// SelectedIndex returns the position of the selection in List, or -1.
func (r *Registry) SelectedIndex(role Role) int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.selected[role]
}

func (r *Registry) selectedLocked(role Role) Device {
	list := r.lists[role.Direction()]
	idx, ok := r.selected[role]
	if !ok || idx < 0 || idx >= len(list) {
		return Null
	}
	return list[idx]
}

// Select picks the device at position index of List(role.Direction()).
func (r *Registry) Select(role Role, index int) error {
	if !validRole(role) {
		return fmt.Errorf("%w: %d", ErrUnknownRole, int(role))
	}

	r.mtx.Lock()
	list := r.lists[role.Direction()]
	if index < 0 || index >= len(list) {
		r.mtx.Unlock()
		return fmt.Errorf("%w: %s #%d of %d", ErrIndexOutOfRange, role, index, len(list))
	}
	before := r.snapshotLocked()
	r.selected[role] = index
	after := r.snapshotLocked()
	listeners := slices.Clone(r.listeners)
	r.mtx.Unlock()

	r.notify(listeners, before, after)
	return nil
}

// SelectByName selects the first device for role whose name is name.
func (r *Registry) SelectByName(role Role, name string) error {
	for i, d := range r.List(role.Direction()) {
		if d.Name == name {
			return r.Select(role, i)
		}
	}
	return fmt.Errorf("%w: %s %q", ErrNotFound, role, name)
}

// SetEnabled toggles whether players use the device for role.
func (r *Registry) SetEnabled(role Role, on bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.enabled[role] = on
}

func (r *Registry) Enabled(role Role) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return r.enabled[role]
}

// OnSelectionChanged registers fn to run after the device for a role
// changes. fn runs on the goroutine that made the change, without locks
// held.
func (r *Registry) OnSelectionChanged(fn func(Role, Device)) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.listeners = append(r.listeners, fn)
}

func (r *Registry) snapshotLocked() map[Role]Device {
	snap := make(map[Role]Device, len(Roles))
	for _, role := range Roles {
		snap[role] = r.selectedLocked(role)
	}
	return snap
}

func (r *Registry) notify(listeners []func(Role, Device), before, after map[Role]Device) {
	for _, role := range Roles {
		if before[role].Same(after[role]) {
			continue
		}
		r.log.Debugf("Selected %s device changed: %s -> %s", role, before[role], after[role])
		for _, fn := range listeners {
			fn(role, after[role])
		}
	}
}

func validRole(role Role) bool {
	return role >= RoleInput && role <= RolePhysical
}
