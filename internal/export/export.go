// Package export renders a stored idea as a Markdown brief and, through
// goldmark, as an HTML fragment for previews.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/tbourn/go-ideas-backend/internal/domain"
)

// Format selects the rendering.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts "md", "markdown" and "html"; empty means Markdown.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, true
	case "html":
		return FormatHTML, true
	}
	return "", false
}

// ContentType is the response media type for f.
func (f Format) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// Markdown renders the idea as a production brief.
func Markdown(idea domain.Idea) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", oneLine(idea.Title))

	var meta []string
	for _, kv := range [][2]string{
		{"Category", idea.Category},
		{"Subcategory", idea.Subcategory},
		{"Length", idea.LengthBucket},
	} {
		if v := oneLine(kv[1]); v != "" {
			meta = append(meta, fmt.Sprintf("**%s:** %s", kv[0], v))
		}
	}
	if len(meta) > 0 {
		b.WriteString(strings.Join(meta, " · "))
		b.WriteString("\n\n")
	}

	b.WriteString("## Outline\n\n")
	for i, step := range idea.Outline {
		fmt.Fprintf(&b, "%d. %s\n", i+1, oneLine(step))
	}

	section(&b, "Mid-roll mention", idea.MidMention)
	section(&b, "Closing mention", idea.EndMention)
	section(&b, "Thumbnail", idea.ThumbnailIdea)
	section(&b, "Ask the audience", idea.InteractionQuestion)
	return b.String()
}

// HTML converts Markdown(idea) with goldmark. Raw HTML in model output is
// omitted by goldmark's default renderer.
func HTML(idea domain.Idea) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(idea)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render dispatches on f.
func Render(idea domain.Idea, f Format) (string, error) {
	if f == FormatHTML {
		return HTML(idea)
	}
	return Markdown(idea), nil
}

func section(b *strings.Builder, heading, body string) {
	if body = strings.TrimSpace(body); body == "" {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n%s\n", heading, body)
}

// oneLine folds newlines so a value cannot break out of its list item or
// heading.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
