package icons

import "fmt"

// Size is one token from the component library's fixed size vocabulary.
type Size string

// The accepted size tokens.
const (
	SizeXS Size = "xs"
	SizeS  Size = "s"
	SizeM  Size = "m"
	SizeL  Size = "l"
	SizeXL Size = "xl"
)

var sizePixels = map[Size]int{
	SizeXS: 12,
	SizeS:  16,
	SizeM:  24,
	SizeL:  32,
	SizeXL: 48,
}

// ParseSize validates a size token. The empty string resolves to def so each
// endpoint can apply its own default.
func ParseSize(raw string, def Size) (Size, error) {
	if raw == "" {
		return def, nil
	}
	s := Size(raw)
	if _, ok := sizePixels[s]; !ok {
		return "", fmt.Errorf("invalid size %q (want one of xs, s, m, l, xl)", raw)
	}
	return s, nil
}

// Pixels returns the rendered pixel dimension for the token.
func (s Size) Pixels() int {
	if px, ok := sizePixels[s]; ok {
		return px
	}
	return sizePixels[SizeM]
}
