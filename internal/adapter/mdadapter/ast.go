package mdadapter

import (
	"github.com/yuin/goldmark/ast"
)

var KindScreenshotDirective = ast.NewNodeKind("ScreenshotDirective")

type ScreenshotDirective struct {
	ast.BaseInline
	Name     string
	Caption  string
	AllShots bool
}

func (n *ScreenshotDirective) Kind() ast.NodeKind {
	return KindScreenshotDirective
}

func (n *ScreenshotDirective) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Name":    n.Name,
		"Caption": n.Caption,
	}, nil)
}
