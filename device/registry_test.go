// SPDX-License-Identifier: EPL-2.0

package device

import (
	"errors"
	"sync"
	"testing"
)

type fakeEnum struct {
	mtx     sync.Mutex
	devices []Device
	err     error
}

func (f *fakeEnum) Devices() ([]Device, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]Device(nil), f.devices...), f.err
}

func (f *fakeEnum) set(devs ...Device) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.devices = devs
}

func in(idx int, name string) Device {
	return Device{Index: idx, Name: name, MaxInputChannels: 2, DefaultSampleRate: 48000}
}

func out(idx int, name string) Device {
	return Device{Index: idx, Name: name, MaxOutputChannels: 2, DefaultSampleRate: 44100}
}

type change struct {
	role Role
	dev  Device
}

func newTestRegistry(t *testing.T, devs ...Device) (*Registry, *fakeEnum, *[]change) {
	t.Helper()

	enum := &fakeEnum{devices: devs}
	r := NewRegistry(enum, nil)
	var changes []change
	r.OnSelectionChanged(func(role Role, d Device) {
		changes = append(changes, change{role, d})
	})
	if err := r.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return r, enum, &changes
}

func TestRegistry_ListSplitsByDirection(t *testing.T) {
	t.Parallel()

	duplex := Device{Index: 2, Name: "headset", MaxInputChannels: 1, MaxOutputChannels: 2}
	r, _, _ := newTestRegistry(t, in(0, "mic"), out(1, "speakers"), duplex)

	inputs := r.List(Input)
	outputs := r.List(Output)
	if len(inputs) != 2 || inputs[0].Name != "mic" || inputs[1].Name != "headset" {
		t.Errorf("List(Input) = %v", inputs)
	}
	if len(outputs) != 2 || outputs[0].Name != "speakers" || outputs[1].Name != "headset" {
		t.Errorf("List(Output) = %v", outputs)
	}

	inputs[0].Name = "mutated"
	if r.List(Input)[0].Name != "mic" {
		t.Error("List() exposed internal storage")
	}
}

func TestRegistry_InitialSelectionPrefersDefault(t *testing.T) {
	t.Parallel()

	spk := out(1, "speakers")
	spk.DefaultOutput = true
	r, _, changes := newTestRegistry(t, out(0, "cable"), spk, in(2, "mic"))

	if got := r.Selected(RoleInput).Name; got != "mic" {
		t.Errorf("Selected(input) = %q, want mic", got)
	}
	if got := r.Selected(RolePhysical).Name; got != "speakers" {
		t.Errorf("Selected(physical) = %q, want speakers", got)
	}
	if got := r.Selected(RoleCable).Name; got != "cable" {
		t.Errorf("Selected(cable) = %q, want cable", got)
	}
	if len(*changes) != 3 {
		t.Errorf("initial refresh fired %d changes, want 3", len(*changes))
	}
}

func TestRegistry_RefreshPreservesPosition(t *testing.T) {
	t.Parallel()

	r, enum, changes := newTestRegistry(t, out(0, "a"), out(1, "b"), out(2, "c"), in(3, "mic"))
	if err := r.Select(RoleCable, 2); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := r.Select(RolePhysical, 1); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	*changes = nil

	// "c" vanished: cable falls back to 0; physical keeps position 1.
	enum.set(out(0, "a"), out(1, "b2"), in(2, "mic"))
	if err := r.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if got := r.SelectedIndex(RoleCable); got != 0 {
		t.Errorf("SelectedIndex(cable) = %d, want 0", got)
	}
	if got := r.Selected(RolePhysical).Name; got != "b2" {
		t.Errorf("Selected(physical) = %q, want b2", got)
	}

	roles := map[Role]bool{}
	for _, c := range *changes {
		roles[c.role] = true
	}
	if !roles[RoleCable] || !roles[RolePhysical] || !roles[RoleInput] {
		t.Errorf("changes = %v, want cable, physical and input", *changes)
	}
}

func TestRegistry_EmptyListGivesNull(t *testing.T) {
	t.Parallel()

	r, enum, _ := newTestRegistry(t, in(0, "mic"), out(1, "spk"))
	enum.set()
	if err := r.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	for _, role := range Roles {
		if d := r.Selected(role); !d.IsNull() {
			t.Errorf("Selected(%s) = %v, want Null", role, d)
		}
	}

	enum.set(in(5, "usb mic"))
	if err := r.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := r.Selected(RoleInput).Name; got != "usb mic" {
		t.Errorf("Selected(input) after replug = %q, want usb mic", got)
	}
}

func TestRegistry_RefreshErrorKeepsState(t *testing.T) {
	t.Parallel()

	r, enum, _ := newTestRegistry(t, in(0, "mic"))
	boom := errors.New("host api gone")
	enum.err = boom

	if err := r.Refresh(); !errors.Is(err, boom) {
		t.Errorf("Refresh() error = %v, want %v", err, boom)
	}
	if got := r.Selected(RoleInput).Name; got != "mic" {
		t.Errorf("Selected(input) = %q, want mic", got)
	}
}

func TestRegistry_Select(t *testing.T) {
	t.Parallel()

	r, _, changes := newTestRegistry(t, out(0, "a"), out(1, "b"))
	*changes = nil

	tests := []struct {
		name    string
		role    Role
		index   int
		wantErr error
	}{
		{"valid", RoleCable, 1, nil},
		{"out of range", RoleCable, 7, ErrIndexOutOfRange},
		{"negative", RolePhysical, -1, ErrIndexOutOfRange},
		{"no inputs", RoleInput, 0, ErrIndexOutOfRange},
		{"bad role", Role(42), 0, ErrUnknownRole},
	}
	for _, tt := range tests {
		if err := r.Select(tt.role, tt.index); !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: Select() error = %v, want %v", tt.name, err, tt.wantErr)
		}
	}

	if len(*changes) != 1 || (*changes)[0].role != RoleCable || (*changes)[0].dev.Name != "b" {
		t.Errorf("changes = %v, want one cable change to b", *changes)
	}

	// reselecting the same device is silent
	if err := r.Select(RoleCable, 1); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(*changes) != 1 {
		t.Errorf("reselect fired a change")
	}

	if err := r.SelectByName(RolePhysical, "b"); err != nil {
		t.Errorf("SelectByName() error = %v", err)
	}
	if err := r.SelectByName(RolePhysical, "zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SelectByName(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_Enabled(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRegistry(t)
	for _, role := range Roles {
		if !r.Enabled(role) {
			t.Errorf("Enabled(%s) = false by default", role)
		}
	}
	r.SetEnabled(RoleCable, false)
	if r.Enabled(RoleCable) {
		t.Error("SetEnabled(false) did not stick")
	}
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	t.Parallel()

	enum := &fakeEnum{devices: []Device{in(0, "mic"), out(1, "spk")}}
	r := NewRegistry(enum, nil)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if i%2 == 0 {
					_ = r.Selected(RolePhysical)
				} else {
					enum.set(in(0, "mic"), out(1, "spk"), out(2, "cable"))
					_ = r.Refresh()
				}
			}
		}()
	}
	wg.Wait()
}
