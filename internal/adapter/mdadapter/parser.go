package mdadapter

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var (
	startSeq   = []byte{'[', '['}
	endSeq     = []byte{']', ']'}
	captionSeq = []byte{'|'}
	allShots   = []byte("SCREENSHOTS")
)

/*
 * Wiki link
 * [[screenshot.png]]
 * [[screenshot.png|Caption]]
 * [[SCREENSHOTS]] - gallery of every screenshot
 */
type ScreenshotDirectiveParser struct{}

func NewScreenshotDirectiveParser() parser.InlineParser {
	return &ScreenshotDirectiveParser{}
}

func (s *ScreenshotDirectiveParser) Trigger() []byte {
	return startSeq
}

func (s *ScreenshotDirectiveParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	b, _ := block.PeekLine()
	if !bytes.HasPrefix(b, startSeq) {
		return nil
	}

	end := bytes.Index(b, endSeq)
	if end < 0 {
		return nil
	}

	line := bytes.TrimSpace(b[len(startSeq):end])
	if len(line) == 0 {
		return nil
	}

	block.Advance(end + len(endSeq))

	if bytes.Equal(line, allShots) {
		return &ScreenshotDirective{
			AllShots: true,
		}
	}

	if name, caption, found := bytes.Cut(line, captionSeq); found {
		return &ScreenshotDirective{
			Name:    string(bytes.TrimSpace(name)),
			Caption: string(bytes.TrimSpace(caption)),
		}
	}

	return &ScreenshotDirective{
		Name: string(line),
	}
}
