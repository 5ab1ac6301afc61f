package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iconsearch/token-renderer/internal/icons"
	"github.com/iconsearch/token-renderer/internal/publish"
	"github.com/iconsearch/token-renderer/internal/render"
	"github.com/iconsearch/token-renderer/internal/storage"
)

var errRenderBroken = errors.New("no element found for component")

type stubRenderer struct {
	payload string
}

func (s *stubRenderer) RenderToImage(_ context.Context, req render.Request) (string, error) {
	if req.Icon == "broken" {
		return "", errRenderBroken
	}
	return s.payload, nil
}

func capturePayload(t *testing.T) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	img.SetGray(8, 8, color.Gray{Y: 0})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestPipeline_RunStoresAndPublishes(t *testing.T) {
	t.Parallel()
	store := storage.NewMemory()
	pub := publish.NewMemory()
	p := New(Config{Prefix: "renders", TargetSize: 32, Concurrency: 2},
		&stubRenderer{payload: capturePayload(t)}, store, pub, nil)

	summary := p.Run(context.Background(), []render.Request{
		{Icon: "check", Kind: render.KindIcon, Size: icons.SizeM},
		{Icon: "bell", Kind: render.KindToken, Size: icons.SizeL},
	})

	assert.Equal(t, Summary{Rendered: 2, Stored: 2, Published: 2, Failed: 0}, summary)
	assert.Equal(t, 2, store.Len())

	data, ok := store.Get("renders/icon/check_m.png")
	require.True(t, ok)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx(), "stored artifact is normalized to the target size")

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	for _, msg := range msgs {
		assert.Contains(t, msg.ObjectURI, "mem://renders/")
		assert.Equal(t, "image/png", msg.ContentType)
		assert.NotEmpty(t, msg.RenderedAt)
	}
}

func TestPipeline_ItemFailureIsIsolated(t *testing.T) {
	t.Parallel()
	store := storage.NewMemory()
	pub := publish.NewMemory()
	p := New(Config{TargetSize: 32}, &stubRenderer{payload: capturePayload(t)}, store, pub, nil)

	summary := p.Run(context.Background(), []render.Request{
		{Icon: "broken", Kind: render.KindIcon, Size: icons.SizeM},
		{Icon: "star", Kind: render.KindIcon, Size: icons.SizeS},
	})

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Stored)
	assert.Equal(t, 1, store.Len())
	require.Len(t, pub.Messages(), 1)
	assert.Equal(t, "star", pub.Messages()[0].IconName)
}

func TestPipeline_BadCaptureCountsAsFailed(t *testing.T) {
	t.Parallel()
	store := storage.NewMemory()
	p := New(Config{TargetSize: 32}, &stubRenderer{payload: "%%% not base64 %%%"}, store, publish.NewMemory(), nil)

	summary := p.Run(context.Background(), []render.Request{
		{Icon: "check", Kind: render.KindIcon, Size: icons.SizeM},
	})

	assert.Equal(t, Summary{Rendered: 1, Stored: 0, Published: 0, Failed: 1}, summary)
	assert.Equal(t, 0, store.Len())
}

func TestPipeline_DefaultsFillIn(t *testing.T) {
	t.Parallel()
	store := storage.NewMemory()
	p := New(Config{}, &stubRenderer{payload: capturePayload(t)}, store, nil, nil)

	summary := p.Run(context.Background(), []render.Request{
		{Icon: "check", Kind: render.KindIcon},
	})

	assert.Equal(t, 1, summary.Stored)
	_, ok := store.Get("icon/check_m.png")
	assert.True(t, ok, "size defaults to m in the object name")
}

type stubSVG struct{}

func (stubSVG) RenderToSVG(string, icons.Size) string {
	return `<svg width="16" height="16"><path d="M1 1h6"/></svg>`
}

func TestPipeline_StaticArtifactForIcons(t *testing.T) {
	t.Parallel()
	store := storage.NewMemory()
	pub := publish.NewMemory()
	p := New(Config{TargetSize: 32}, &stubRenderer{payload: capturePayload(t)}, store, pub, nil).
		WithSVGRenderer(stubSVG{})

	summary := p.Run(context.Background(), []render.Request{
		{Icon: "check", Kind: render.KindIcon, Size: icons.SizeM},
		{Icon: "bell", Kind: render.KindToken, Size: icons.SizeM},
	})

	assert.Equal(t, Summary{Rendered: 2, Stored: 3, Published: 3, Failed: 0}, summary)

	data, ok := store.Get("icon/check_m.svg")
	require.True(t, ok, "icons get a normalized static artifact")
	assert.Contains(t, string(data), `width="32"`)
	assert.NotContains(t, string(data), "fill=")

	_, ok = store.Get("token/bell_m.svg")
	assert.False(t, ok, "tokens have no static path")
}
