package headless

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/PuerkitoBio/goquery"
)

// checkPreview verifies the static preview bundle exists and carries the
// mount root the selection scripts depend on. A successful check is cached;
// a missing bundle is re-checked on every call so building it later heals the
// service without a restart.
func (s *Session) checkPreview() error {
	if s.previewOK.Load() {
		return nil
	}

	index := filepath.Join(s.cfg.PreviewDir, "index.html")
	f, err := os.Open(index)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPreviewMissing, index)
	}
	defer func() {
		_ = f.Close()
	}()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return fmt.Errorf("parse preview bundle: %w", err)
	}
	if doc.Find("#root").Length() == 0 {
		return fmt.Errorf("%w: index.html has no #root mount element", ErrPreviewMissing)
	}

	s.previewOK.Store(true)
	return nil
}
