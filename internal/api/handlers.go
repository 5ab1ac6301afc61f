package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iconsearch/token-renderer/internal/headless"
	"github.com/iconsearch/token-renderer/internal/icons"
	"github.com/iconsearch/token-renderer/internal/render"
	"github.com/iconsearch/token-renderer/internal/svg"
)

// renderItem is the wire shape shared by the single and batch render
// endpoints. The legacy token endpoints omit componentType.
type renderItem struct {
	IconName      string `json:"iconName"`
	ComponentType string `json:"componentType"`
	Size          string `json:"size"`
}

func (it renderItem) toRequest(forced render.Kind) render.Request {
	kind := render.Kind(it.ComponentType)
	if forced != "" {
		kind = forced
	}
	return render.Request{
		Icon: it.IconName,
		Kind: kind,
		Size: icons.Size(it.Size),
	}
}

type imageResponse struct {
	Image         string `json:"image"`
	IconName      string `json:"iconName"`
	ComponentType string `json:"componentType"`
	Size          string `json:"size"`
}

type markupResponse struct {
	SvgContent    string `json:"svgContent"`
	IconName      string `json:"iconName"`
	ComponentType string `json:"componentType"`
	Size          string `json:"size"`
}

type imageBatchItem struct {
	IconName      string  `json:"iconName"`
	ComponentType string  `json:"componentType"`
	Size          string  `json:"size"`
	Image         *string `json:"image"`
	Error         *string `json:"error"`
}

type markupBatchItem struct {
	IconName      string  `json:"iconName"`
	ComponentType string  `json:"componentType"`
	Size          string  `json:"size"`
	SvgContent    *string `json:"svgContent"`
	Error         *string `json:"error"`
}

func (s *Server) renderIcon(w http.ResponseWriter, r *http.Request) {
	var body renderItem
	if !s.decode(w, r, &body) {
		return
	}
	req := body.toRequest("")
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req = req.Normalized()
	image, err := s.headless.RenderToImage(r.Context(), req)
	if err != nil {
		s.writeError(w, renderStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, imageResponse{
		Image:         image,
		IconName:      req.Icon,
		ComponentType: string(req.Kind),
		Size:          string(req.Size),
	})
}

func (s *Server) renderSVG(w http.ResponseWriter, r *http.Request) {
	var body renderItem
	if !s.decode(w, r, &body) {
		return
	}
	req := body.toRequest("")
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req = req.Normalized()
	markup, err := s.headless.RenderToMarkup(r.Context(), req)
	if err != nil {
		s.writeError(w, renderStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, markupResponse{
		SvgContent:    markup,
		IconName:      req.Icon,
		ComponentType: string(req.Kind),
		Size:          string(req.Size),
	})
}

// renderTokenLegacy keeps the pre-componentType contract alive: the request
// names only an icon and a size, and the kind is always token.
func (s *Server) renderTokenLegacy(w http.ResponseWriter, r *http.Request) {
	var body renderItem
	if !s.decode(w, r, &body) {
		return
	}
	req := body.toRequest(render.KindToken)
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req = req.Normalized()
	image, err := s.headless.RenderToImage(r.Context(), req)
	if err != nil {
		s.writeError(w, renderStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, imageResponse{
		Image:         image,
		IconName:      req.Icon,
		ComponentType: string(req.Kind),
		Size:          string(req.Size),
	})
}

type batchBody struct {
	// A pointer distinguishes an absent array (a client error) from an
	// empty one (a valid request with zero work).
	Icons *[]renderItem `json:"icons"`
}

type legacyBatchBody struct {
	Tokens *[]renderItem `json:"tokens"`
}

func (s *Server) renderIconBatch(w http.ResponseWriter, r *http.Request) {
	var body batchBody
	if !s.decode(w, r, &body) {
		return
	}
	if body.Icons == nil {
		s.writeError(w, http.StatusBadRequest, "icons must be an array")
		return
	}
	reqs := toRequests(*body.Icons, "")
	results := s.headless.RenderImageBatch(r.Context(), reqs)
	s.writeJSON(w, http.StatusOK, map[string]any{"results": imageResults(results)})
}

func (s *Server) renderSVGBatch(w http.ResponseWriter, r *http.Request) {
	var body batchBody
	if !s.decode(w, r, &body) {
		return
	}
	if body.Icons == nil {
		s.writeError(w, http.StatusBadRequest, "icons must be an array")
		return
	}
	reqs := toRequests(*body.Icons, "")
	results := s.headless.RenderMarkupBatch(r.Context(), reqs)
	s.writeJSON(w, http.StatusOK, map[string]any{"results": markupResults(results)})
}

func (s *Server) renderTokenBatchLegacy(w http.ResponseWriter, r *http.Request) {
	var body legacyBatchBody
	if !s.decode(w, r, &body) {
		return
	}
	if body.Tokens == nil {
		s.writeError(w, http.StatusBadRequest, "tokens must be an array")
		return
	}
	reqs := toRequests(*body.Tokens, render.KindToken)
	results := s.headless.RenderImageBatch(r.Context(), reqs)
	s.writeJSON(w, http.StatusOK, map[string]any{"results": imageResults(results)})
}

// renderSVGStatic serves sized, normalized markup straight from the embedded
// icon corpus without touching the browser.
func (s *Server) renderSVGStatic(w http.ResponseWriter, r *http.Request) {
	var body renderItem
	if !s.decode(w, r, &body) {
		return
	}
	if body.IconName == "" {
		s.writeError(w, http.StatusBadRequest, "iconName is required")
		return
	}
	size, err := icons.ParseSize(body.Size, icons.SizeXL)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !icons.Has(body.IconName) {
		s.writeError(w, http.StatusNotFound, "unknown icon "+body.IconName)
		return
	}
	markup := s.static.RenderToSVG(body.IconName, size)
	if markup == "" {
		s.writeError(w, http.StatusInternalServerError, "static render failed")
		return
	}
	s.writeJSON(w, http.StatusOK, markupResponse{
		SvgContent:    markup,
		IconName:      body.IconName,
		ComponentType: string(render.KindIcon),
		Size:          string(size),
	})
}

type normalizeBody struct {
	SvgContent string `json:"svgContent"`
	TargetSize int    `json:"targetSize"`
}

func (s *Server) normalizeSVG(w http.ResponseWriter, r *http.Request) {
	var body normalizeBody
	if !s.decode(w, r, &body) {
		return
	}
	if body.SvgContent == "" {
		s.writeError(w, http.StatusBadRequest, "svgContent is required")
		return
	}
	target := body.TargetSize
	if target <= 0 {
		target = svg.DefaultTargetSize
	}
	normalized := svg.Normalize(svg.Extract(body.SvgContent), target)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"svgContent": normalized,
		"targetSize": target,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func toRequests(items []renderItem, forced render.Kind) []render.Request {
	reqs := make([]render.Request, len(items))
	for i, it := range items {
		reqs[i] = it.toRequest(forced)
	}
	return reqs
}

func imageResults(results []render.BatchResult) []imageBatchItem {
	out := make([]imageBatchItem, 0, len(results))
	for _, res := range results {
		item := imageBatchItem{
			IconName:      res.Icon,
			ComponentType: string(res.Kind),
			Size:          string(res.Size),
		}
		if res.Err != nil {
			msg := res.Err.Error()
			item.Error = &msg
		} else {
			payload := res.Payload
			item.Image = &payload
		}
		out = append(out, item)
	}
	return out
}

func markupResults(results []render.BatchResult) []markupBatchItem {
	out := make([]markupBatchItem, 0, len(results))
	for _, res := range results {
		item := markupBatchItem{
			IconName:      res.Icon,
			ComponentType: string(res.Kind),
			Size:          string(res.Size),
		}
		if res.Err != nil {
			msg := res.Err.Error()
			item.Error = &msg
		} else {
			payload := res.Payload
			item.SvgContent = &payload
		}
		out = append(out, item)
	}
	return out
}

// renderStatus maps a render failure to an HTTP status. A missing preview
// bundle means the service cannot serve any render, not that this request
// was malformed.
func renderStatus(err error) int {
	if errors.Is(err, headless.ErrPreviewMissing) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
