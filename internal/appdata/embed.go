package appdata

import (
	"embed"
	"path"
	"strings"
)

//go:embed apps
var embeddedApps embed.FS

// init walks the embedded apps directory and registers each file by its
// basename with the extension stripped, the //go:embed counterpart to
// the source kernel's link_app.S directory walk. apps/initproc.bin is
// the only binary carried in this tree today; a real deployment drops a
// compiled user ELF image per registered name here.
func init() {
	entries, err := embeddedApps.ReadDir("apps")
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := embeddedApps.ReadFile(path.Join("apps", e.Name()))
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		Register(name, data)
	}
}
