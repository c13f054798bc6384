package board

import (
	"fmt"
	"sort"
)

// Profile describes what the simulated part offers: the scheduler timebase
// and the memory pool task stacks are carved from. Application wiring
// (which tasks exist, their priorities) never lives here.
type Profile struct {
	Name      string
	CPUMHz    int
	HeapBytes int
	TickMS    int
}

var profiles = map[string]Profile{
	"esp32":   {Name: "esp32", CPUMHz: 240, HeapBytes: 256 << 10, TickMS: 10},
	"esp32s3": {Name: "esp32s3", CPUMHz: 240, HeapBytes: 384 << 10, TickMS: 10},
	"esp32c3": {Name: "esp32c3", CPUMHz: 160, HeapBytes: 320 << 10, TickMS: 10},
}

// Lookup returns the profile for the given board name.
func Lookup(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("board: unknown profile %q (known: %v)", name, Names())
	}
	return p, nil
}

// Names lists the known profiles in stable order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Profiles returns every known profile, ordered by name.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, name := range Names() {
		out = append(out, profiles[name])
	}
	return out
}
