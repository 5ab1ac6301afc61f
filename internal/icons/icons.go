// Package icons holds the embedded icon corpus of the component library and
// the size vocabulary shared by every renderer.
package icons

import (
	"embed"
	"fmt"
	"sort"
)

//go:embed assets/*.svg
var assets embed.FS

// ErrUnknownIcon reports an identifier with no backing asset.
var ErrUnknownIcon = fmt.Errorf("unknown icon identifier")

// typeToPath maps public icon identifiers to asset files. Identifiers are the
// stable names callers use over HTTP; files may be renamed independently.
var typeToPath = map[string]string{
	"alert":    "alert.svg",
	"bell":     "bell.svg",
	"calendar": "calendar.svg",
	"check":    "check.svg",
	"clock":    "clock.svg",
	"cross":    "cross.svg",
	"document": "document.svg",
	"download": "download.svg",
	"folder":   "folder.svg",
	"gear":     "gear.svg",
	"heart":    "heart.svg",
	"home":     "home.svg",
	"lock":     "lock.svg",
	"search":   "search.svg",
	"star":     "star.svg",
	"trash":    "trash.svg",
	"user":     "user.svg",
}

// Has reports whether the identifier names a known icon.
func Has(name string) bool {
	_, ok := typeToPath[name]
	return ok
}

// Names returns all known icon identifiers in sorted order.
func Names() []string {
	names := make([]string, 0, len(typeToPath))
	for name := range typeToPath {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source returns the raw SVG markup for the identifier.
func Source(name string) (string, error) {
	file, ok := typeToPath[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownIcon, name)
	}
	data, err := assets.ReadFile("assets/" + file)
	if err != nil {
		return "", fmt.Errorf("read icon asset %q: %w", file, err)
	}
	return string(data), nil
}
