// Package pages renders long-description markdown into HTML fragments the
// storefront loads lazily next to the catalog.
package pages

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	_ "embed"

	"github.com/spf13/afero"
	"github.com/storegen/storegen/internal/adapter/mdadapter"
	"github.com/storegen/storegen/internal/config"
	"github.com/storegen/storegen/internal/entity"
	"github.com/storegen/storegen/internal/service/assets"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

// DescriptionsDir is where rendered fragments land in the output tree.
const DescriptionsDir = "descriptions"

//go:embed templates/description.html
var fragmentTemplateContent string

//go:embed templates/screenshots.html
var screenshotTemplateContent string

type fragmentContext struct {
	AppID       string
	Title       string
	ContentHTML template.HTML
}

type pageRenderer struct {
	fs   afero.Fs
	cfg  *config.SourceConfig
	tmpl *template.Template
	log  *slog.Logger
}

func NewPageRenderer(fs afero.Fs, cfg *config.SourceConfig, log *slog.Logger) (*pageRenderer, error) {
	tmpl, err := template.New("fragment").Parse(fragmentTemplateContent)
	if err != nil {
		return nil, fmt.Errorf("cannot parse fragment template: %w", err)
	}

	if _, err := tmpl.Parse(screenshotTemplateContent); err != nil {
		return nil, fmt.Errorf("cannot parse screenshot templates: %w", err)
	}

	return &pageRenderer{
		fs:   fs,
		cfg:  cfg,
		tmpl: tmpl,
		log:  log.With(slog.String("service", "pages")),
	}, nil
}

// RenderAll writes one fragment per bundle that ships a description file and
// reports how many it rendered. Bundles without the file are fine; their
// records carry whatever description the metadata had.
func (r *pageRenderer) RenderAll(ctx context.Context, outDir string, valid []entity.ValidBundle) (int, error) {
	rendered := 0
	for _, v := range valid {
		select {
		case <-ctx.Done():
			return rendered, ctx.Err()
		default:
		}

		ok, err := r.renderOne(outDir, v)
		if err != nil {
			return rendered, err
		}
		if ok {
			rendered++
		}
	}

	r.log.Info("Description fragments rendered", slog.Int("count", rendered))

	return rendered, nil
}

func (r *pageRenderer) renderOne(outDir string, v entity.ValidBundle) (bool, error) {
	srcPath := filepath.Join(v.Bundle.Dir, r.cfg.DescFileName)

	src, err := afero.ReadFile(r.fs, srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("cannot read %s: %w", srcPath, err)
	}

	// Screenshot directives resolve against this bundle's record, so the
	// converter is built per bundle.
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			&frontmatter.Extender{},
			mdadapter.NewScreenshotsExtension(newScreenshotResolver(v), r.tmpl),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var body bytes.Buffer
	pc := parser.NewContext()
	if err := md.Convert(src, &body, parser.WithContext(pc)); err != nil {
		return false, fmt.Errorf("cannot convert description for %s: %w", v.Record.AppID, err)
	}

	fctx := fragmentContext{
		AppID:       v.Record.AppID,
		ContentHTML: template.HTML(body.String()),
	}

	if fm := frontmatter.Get(pc); fm != nil {
		var meta struct {
			Title string `yaml:"title"`
		}
		if err := fm.Decode(&meta); err == nil {
			fctx.Title = meta.Title
		}
	}

	var page bytes.Buffer
	if err := r.tmpl.Execute(&page, &fctx); err != nil {
		return false, fmt.Errorf("cannot build fragment for %s: %w", v.Record.AppID, err)
	}

	dst := filepath.Join(outDir, DescriptionsDir, v.Record.AppID+".html")
	if err := r.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, fmt.Errorf("cannot create %s: %w", filepath.Dir(dst), err)
	}
	if err := afero.WriteFile(r.fs, dst, page.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("cannot write %s: %w", dst, err)
	}

	return true, nil
}

// screenshotResolver serves directive lookups from the screenshots the
// bundle's record carries.
type screenshotResolver struct {
	appID string
	shots []entity.Screenshot
}

func newScreenshotResolver(v entity.ValidBundle) *screenshotResolver {
	return &screenshotResolver{
		appID: v.Record.AppID,
		shots: v.Record.Screenshots,
	}
}

func (r *screenshotResolver) GetScreenshot(name string) (*entity.Screenshot, error) {
	for _, shot := range r.shots {
		if shot.URL == name {
			return r.published(shot), nil
		}
	}

	return nil, fmt.Errorf("bundle has no screenshot %s", name)
}

func (r *screenshotResolver) GetScreenshots() []*entity.Screenshot {
	out := make([]*entity.Screenshot, 0, len(r.shots))
	for _, shot := range r.shots {
		out = append(out, r.published(shot))
	}

	return out
}

// published maps a record screenshot onto the src a fragment under
// descriptions/ can load. Bundle-local names point into the collected
// screenshots tree; remote URLs pass through.
func (r *screenshotResolver) published(shot entity.Screenshot) *entity.Screenshot {
	if !strings.Contains(shot.URL, "://") {
		shot.URL = path.Join("..", assets.ScreenshotsDir, r.appID, shot.URL)
	}

	return &shot
}
