// Package mdadapter extends goldmark with screenshot directives for bundle
// descriptions: [[name.png]] embeds one screenshot, [[name.png|Caption]]
// overrides its caption and [[SCREENSHOTS]] expands into the whole gallery.
// A directive naming a screenshot the bundle does not ship fails the
// conversion, so broken references never reach the published tree.
package mdadapter

import (
	"html/template"

	"github.com/storegen/storegen/internal/entity"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// ScreenshotResolver maps directive names onto publishable screenshots.
// Returned values are the renderer's to mutate.
type ScreenshotResolver interface {
	GetScreenshot(name string) (*entity.Screenshot, error)
	GetScreenshots() []*entity.Screenshot
}

type ScreenshotsExtension struct {
	r    ScreenshotResolver
	tmpl *template.Template
}

// NewScreenshotsExtension builds the extension around a resolver and a
// template set defining SCREENSHOT and SCREENSHOTS.
func NewScreenshotsExtension(r ScreenshotResolver, tmpl *template.Template) goldmark.Extender {
	return &ScreenshotsExtension{r: r, tmpl: tmpl}
}

func (e *ScreenshotsExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			util.Prioritized(NewScreenshotDirectiveParser(), 199),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(NewScreenshotDirectiveRenderer(e.r, e.tmpl), 199),
		),
	)
}
