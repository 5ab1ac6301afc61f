// Package svg canonicalizes icon markup before it is handed to the
// embedding/indexing pipeline.
package svg

import (
	"fmt"
	"regexp"
	"strconv"
)

// DefaultTargetSize is the canonical pixel size expected by the embedding model.
const DefaultTargetSize = 224

// xmlns is the only namespace a normalized document carries.
const xmlns = "http://www.w3.org/2000/svg"

// defaultViewBox matches the component library's native icon grid.
const defaultViewBox = "0 0 24 24"

var (
	openTagRe = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox=["']([^"']+)["']`)
	widthRe   = regexp.MustCompile(`width=["']([^"']+)["']`)
	heightRe  = regexp.MustCompile(`height=["']([^"']+)["']`)
	fillRe    = regexp.MustCompile(`\s?fill=["'][^"']*["']`)
	strokeRe  = regexp.MustCompile(`\s?stroke=["'][^"']*["']`)
	nonNumRe  = regexp.MustCompile(`[^0-9.]`)
)

// Normalize rewrites arbitrary icon SVG markup into canonical form: the
// resolved viewBox, explicit pixel width/height equal to targetSize, the SVG
// namespace, and no fill/stroke attributes anywhere in the document. The
// empty string is returned unchanged so callers can treat "nothing to
// normalize" as a non-error. Normalize is idempotent for a fixed targetSize.
//
// Attribute rewriting deliberately operates on the raw string: HTML parsers
// lowercase attribute names on re-serialization, which corrupts viewBox.
func Normalize(content string, targetSize int) string {
	if content == "" {
		return ""
	}
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	viewBox := defaultViewBox
	if m := viewBoxRe.FindStringSubmatch(content); m != nil {
		viewBox = m[1]
	} else {
		wm := widthRe.FindStringSubmatch(content)
		hm := heightRe.FindStringSubmatch(content)
		if wm != nil && hm != nil {
			viewBox = fmt.Sprintf("0 0 %s %s", dimension(wm[1]), dimension(hm[1]))
		}
	}

	opening := fmt.Sprintf(`<svg viewBox="%s" width="%d" height="%d" xmlns="%s">`,
		viewBox, targetSize, targetSize, xmlns)
	normalized := replaceFirst(content, openTagRe, opening)
	normalized = fillRe.ReplaceAllString(normalized, "")
	normalized = strokeRe.ReplaceAllString(normalized, "")
	return normalized
}

// dimension extracts a numeric pixel value from a width/height attribute,
// tolerating units like "16px". Unparseable values fall back to 24.
func dimension(raw string) string {
	cleaned := nonNumRe.ReplaceAllString(raw, "")
	if cleaned == "" {
		return "24"
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return "24"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func replaceFirst(s string, re *regexp.Regexp, with string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + with + s[loc[1]:]
}
