package mdadapter

import (
	"bytes"
	"fmt"
	"html/template"
	"testing"

	"github.com/storegen/storegen/internal/entity"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

const testTemplates = `
{{ define "SCREENSHOT" }}<figure><img src="{{ .URL }}" alt="{{ .Caption }}"/>{{ if .Caption }}<figcaption>{{ .Caption }}</figcaption>{{ end }}</figure>{{ end }}
{{ define "SCREENSHOTS" }}<div class="gallery">{{ range . }}{{ template "SCREENSHOT" . }}{{ end }}</div>{{ end }}
`

type fakeResolver struct {
	shots []entity.Screenshot
}

func (f *fakeResolver) GetScreenshot(name string) (*entity.Screenshot, error) {
	for _, shot := range f.shots {
		if shot.URL == name {
			out := shot

			return &out, nil
		}
	}

	return nil, fmt.Errorf("no screenshot %s", name)
}

func (f *fakeResolver) GetScreenshots() []*entity.Screenshot {
	out := make([]*entity.Screenshot, 0, len(f.shots))
	for _, shot := range f.shots {
		s := shot
		out = append(out, &s)
	}

	return out
}

func testMarkdown(t *testing.T, r ScreenshotResolver) goldmark.Markdown {
	t.Helper()

	tmpl, err := template.New("shots").Parse(testTemplates)
	require.NoError(t, err)

	return goldmark.New(
		goldmark.WithExtensions(
			NewScreenshotsExtension(r, tmpl),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
}

func convert(t *testing.T, md goldmark.Markdown, source string) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, md.Convert([]byte(source), &buf))

	return buf.String()
}

func TestScreenshotDirective(t *testing.T) {
	r := &fakeResolver{shots: []entity.Screenshot{{URL: "main.png"}}}
	md := testMarkdown(t, r)

	out := convert(t, md, "See [[main.png]] in action.")

	require.Contains(t, out, `<img src="main.png" alt=""/>`)
	require.Contains(t, out, "See ")
	require.Contains(t, out, " in action.")
	require.NotContains(t, out, "[[")
}

func TestScreenshotDirectiveCaptionOverride(t *testing.T) {
	r := &fakeResolver{shots: []entity.Screenshot{{URL: "main.png", Caption: "Authored"}}}
	md := testMarkdown(t, r)

	out := convert(t, md, "[[main.png|Zoomed in]]")

	require.Contains(t, out, "<figcaption>Zoomed in</figcaption>")
	require.NotContains(t, out, "Authored")
}

func TestScreenshotDirectiveTrimsSpaces(t *testing.T) {
	r := &fakeResolver{shots: []entity.Screenshot{{URL: "main.png"}}}
	md := testMarkdown(t, r)

	out := convert(t, md, "[[ main.png | Nice view ]]")

	require.Contains(t, out, `<img src="main.png" alt="Nice view"/>`)
	require.Contains(t, out, "<figcaption>Nice view</figcaption>")
}

func TestScreenshotDirectiveGallery(t *testing.T) {
	r := &fakeResolver{shots: []entity.Screenshot{
		{URL: "one.png", Caption: "First"},
		{URL: "two.png", Caption: "Second"},
	}}
	md := testMarkdown(t, r)

	out := convert(t, md, "All shots:\n\n[[SCREENSHOTS]]\n")

	require.Contains(t, out, `<div class="gallery">`)
	require.Contains(t, out, `<img src="one.png" alt="First"/>`)
	require.Contains(t, out, `<img src="two.png" alt="Second"/>`)
}

func TestScreenshotDirectiveUnknownName(t *testing.T) {
	md := testMarkdown(t, &fakeResolver{})

	var buf bytes.Buffer
	err := md.Convert([]byte("[[missing.png]]"), &buf)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing.png")
}

func TestScreenshotDirectiveLeavesMarkdownAlone(t *testing.T) {
	r := &fakeResolver{shots: []entity.Screenshot{{URL: "main.png"}}}
	md := testMarkdown(t, r)

	out := convert(t, md, "A [link](https://example.org) and [single] brackets.")

	require.Contains(t, out, `<a href="https://example.org">link</a>`)
	require.Contains(t, out, "[single] brackets.")
}

func TestScreenshotDirectiveUnterminated(t *testing.T) {
	r := &fakeResolver{shots: []entity.Screenshot{{URL: "main.png"}}}
	md := testMarkdown(t, r)

	out := convert(t, md, "Broken [[main.png without close.")

	require.Contains(t, out, "[[main.png without close.")
}

func TestScreenshotDirectiveEmptyName(t *testing.T) {
	md := testMarkdown(t, &fakeResolver{})

	out := convert(t, md, "Empty [[]] stays literal.")

	require.Contains(t, out, "[[]]")
}
