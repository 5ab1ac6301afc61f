package headless

import "github.com/iconsearch/token-renderer/internal/render"

// tokenWrapperClass is the marker class the preview bundle puts on the token
// component's outer wrapper. Token rendering embeds an icon-like SVG inside
// this wrapper, which is why icon selection must exclude anything under it.
const tokenWrapperClass = "tokenWrapper"

// The selection strategies run inside the page and tag their pick with the
// data-render-target attribute so capture can address it by selector. Each
// returns whether a target was found.
//
// token: the wrapper carrying the marker class; fallback, any wrapper element
// that directly contains an SVG.
const tokenSelectScript = `(() => {
	const mark = (el) => { el.setAttribute('data-render-target', ''); return true; };
	const wrapper = document.querySelector('.` + tokenWrapperClass + `');
	if (wrapper) {
		return mark(wrapper);
	}
	const hosts = Array.from(document.querySelectorAll('div, span'));
	const host = hosts.find((el) =>
		Array.from(el.children).some((c) => c.tagName && c.tagName.toLowerCase() === 'svg'));
	return host ? mark(host) : false;
})()`

// icon: an SVG that is not nested inside a token wrapper; fallback, the first
// SVG present.
const iconSelectScript = `(() => {
	const mark = (el) => { el.setAttribute('data-render-target', ''); return true; };
	const svgs = Array.from(document.querySelectorAll('svg'));
	const unwrapped = svgs.find((el) => !el.closest('.` + tokenWrapperClass + `'));
	if (unwrapped) {
		return mark(unwrapped);
	}
	return svgs.length > 0 ? mark(svgs[0]) : false;
})()`

// selectionScript returns the kind-specific in-page selection strategy.
func selectionScript(kind render.Kind) string {
	if kind == render.KindToken {
		return tokenSelectScript
	}
	return iconSelectScript
}
