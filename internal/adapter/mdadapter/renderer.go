package mdadapter

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

const (
	tmplNameShot  = "SCREENSHOT"
	tmplNameShots = "SCREENSHOTS"
)

type ScreenshotDirectiveRenderer struct {
	r    ScreenshotResolver
	tmpl *template.Template
}

func NewScreenshotDirectiveRenderer(r ScreenshotResolver, tmpl *template.Template) renderer.NodeRenderer {
	return &ScreenshotDirectiveRenderer{r: r, tmpl: tmpl}
}

func (r *ScreenshotDirectiveRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindScreenshotDirective, r.renderScreenshotDirective)
}

func (r *ScreenshotDirectiveRenderer) renderScreenshotDirective(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	directive, ok := n.(*ScreenshotDirective)
	if !ok {
		return ast.WalkStop, fmt.Errorf("unexpected node %T, expected *ScreenshotDirective", n)
	}

	if directive.AllShots {
		data, err := r.renderTemplate(tmplNameShots, r.r.GetScreenshots())
		if err != nil {
			return ast.WalkStop, err
		}

		_, _ = w.Write(data)

		return ast.WalkContinue, nil
	}

	shot, err := r.r.GetScreenshot(directive.Name)
	if err != nil {
		return ast.WalkStop, fmt.Errorf("cannot get screenshot %s: %w", directive.Name, err)
	}

	if directive.Caption != "" {
		shot.Caption = directive.Caption
	}

	data, err := r.renderTemplate(tmplNameShot, shot)
	if err != nil {
		return ast.WalkStop, err
	}

	_, _ = w.Write(data)

	return ast.WalkContinue, nil
}

func (r *ScreenshotDirectiveRenderer) renderTemplate(tmplName string, data any) ([]byte, error) {
	tmpl := r.tmpl.Lookup(tmplName)
	if tmpl == nil {
		return nil, fmt.Errorf("template with name %s must be defined", tmplName)
	}

	buf := &bytes.Buffer{}
	if err := tmpl.Execute(buf, data); err != nil {
		return nil, fmt.Errorf("cannot execute template: %w", err)
	}

	return buf.Bytes(), nil
}
