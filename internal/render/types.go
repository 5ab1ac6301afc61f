// Package render defines the rendering request/result model and the static
// (browserless) markup renderer.
package render

import (
	"errors"
	"fmt"

	"github.com/iconsearch/token-renderer/internal/icons"
)

// Kind selects which component wraps an icon on the preview page.
type Kind string

// The two component kinds the headless path can render.
const (
	KindIcon  Kind = "icon"
	KindToken Kind = "token"
)

// ErrInvalidKind reports a componentType outside the accepted vocabulary.
// An absent or invalid kind is a client error, never a silent default.
var ErrInvalidKind = errors.New(`componentType must be "icon" or "token"`)

// ParseKind validates a componentType value.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindIcon, KindToken:
		return Kind(raw), nil
	default:
		return "", fmt.Errorf("%w (got %q)", ErrInvalidKind, raw)
	}
}

// Request identifies a single icon/token render.
type Request struct {
	Icon string
	Kind Kind
	Size icons.Size
}

// Validate enforces the invariants shared by all headless-backed renders.
func (r Request) Validate() error {
	if r.Icon == "" {
		return errors.New("iconName is required")
	}
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	if _, err := icons.ParseSize(string(r.Size), icons.SizeM); err != nil {
		return err
	}
	return nil
}

// Normalized returns a copy with the default size filled in, so downstream
// consumers always see a concrete size token.
func (r Request) Normalized() Request {
	if r.Size == "" {
		r.Size = icons.SizeM
	}
	return r
}

// BatchResult is the per-item outcome of a batch render. Exactly one of
// Payload and Err carries meaning: a failed item has an empty payload and a
// non-nil error, a successful one the reverse.
type BatchResult struct {
	Request
	Payload string
	Err     error
}
