package render

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/iconsearch/token-renderer/internal/icons"
	"github.com/iconsearch/token-renderer/internal/svg"
)

var staticDimRe = regexp.MustCompile(`(width|height)=["'][^"']*["']`)

// StaticRenderer produces icon SVG markup without a browser by serializing
// the embedded component source. It is the fast path: no DOM, no network, no
// filesystem beyond the compiled-in assets.
type StaticRenderer struct {
	logger *zap.Logger
}

// NewStatic constructs a StaticRenderer.
func NewStatic(logger *zap.Logger) *StaticRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaticRenderer{logger: logger.Named("static")}
}

// RenderToSVG serializes the named icon at the given size and returns the
// first <svg>...</svg> span of the output. When the serialized output holds
// no svg element the whole serialization is returned (callers must tolerate
// non-SVG-wrapped output). Failures, including unknown identifiers, are
// logged and reported as the empty string rather than an error: the empty
// result is the nil contract shared with the headless path.
func (r *StaticRenderer) RenderToSVG(iconName string, size icons.Size) string {
	if iconName == "" {
		return ""
	}
	if _, err := icons.ParseSize(string(size), icons.SizeXL); err != nil {
		r.logger.Warn("static render rejected size",
			zap.String("icon", iconName), zap.Error(err))
		return ""
	}

	serialized, err := r.serialize(iconName, size)
	if err != nil {
		r.logger.Warn("static render failed",
			zap.String("icon", iconName), zap.Error(err))
		return ""
	}
	return svg.Extract(serialized)
}

// serialize mimics the component library's server-side output: the icon
// source sized for the requested token, wrapped in the component's span.
func (r *StaticRenderer) serialize(iconName string, size icons.Size) (string, error) {
	source, err := icons.Source(iconName)
	if err != nil {
		return "", err
	}
	px := size.Pixels()
	sized := staticDimRe.ReplaceAllString(source, "")
	sized = replaceOpeningTag(sized, fmt.Sprintf(
		`<svg width="%d" height="%d"`, px, px))
	return fmt.Sprintf(`<span class="renderedIcon renderedIcon--%s" data-icon-type="%s">%s</span>`,
		size, iconName, sized), nil
}

var openSVGRe = regexp.MustCompile(`<svg`)

func replaceOpeningTag(content, with string) string {
	loc := openSVGRe.FindStringIndex(content)
	if loc == nil {
		return content
	}
	return content[:loc[0]] + with + content[loc[1]:]
}
