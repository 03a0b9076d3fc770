// Package appdata is the embedded-applications table (§6, §9): a
// name-to-ELF-bytes lookup the spec requires exactly one contract for —
// GetAppDataByName(name) (data, ok). The source kernel builds this table
// at link time from an assembly file (link_app.S) that walks a
// directory of compiled user ELF binaries; spec §9 says any equivalent
// resource-embedding facility may replace it, naming Go's own
// counterpart: `//go:embed`. This package is written so a real
// deployment wires a `//go:embed apps/*` directive into Register calls
// in an init() function; the registry itself is embedding-mechanism
// agnostic so tests can inject synthetic ELF images without a real
// embedded filesystem.
package appdata

import "sync"

var (
	mu    sync.Mutex
	table = map[string][]byte{}
)

// Register adds name -> data to the table. Re-registering the same name
// overwrites the previous entry (useful for tests); the real boot path
// calls this once per embedded binary, in an init() driven by
// //go:embed.
func Register(name string, data []byte) {
	mu.Lock()
	defer mu.Unlock()
	table[name] = data
}

// GetAppDataByName returns the named application's ELF bytes, the sole
// contract §9 requires of this collaborator.
func GetAppDataByName(name string) (data []byte, ok bool) {
	mu.Lock()
	defer mu.Unlock()
	data, ok = table[name]
	return data, ok
}

// Names returns the registered application names, for diagnostics and
// for a shell-style listing syscall if one is ever added.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(table))
	for n := range table {
		names = append(names, n)
	}
	return names
}
