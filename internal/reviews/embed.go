package reviews

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EmbedFile is the operator supplied widget snippet under the public dir.
const EmbedFile = "reviews-embed.html"

// ErrEmptyEmbed reports a snippet with no usable content.
var ErrEmptyEmbed = errors.New("reviews: embed snippet is empty")

// Embed is a widget snippet split into head scripts and body markup.
// The snippet is operator content, so both parts are trusted HTML.
type Embed struct {
	Scripts []template.HTML
	Markup  template.HTML
}

// Empty reports whether the embed has neither scripts nor markup.
func (e Embed) Empty() bool {
	return len(e.Scripts) == 0 && strings.TrimSpace(string(e.Markup)) == ""
}

// LoadEmbed reads name from fsys and splits it.
func LoadEmbed(fsys fs.FS, name string) (Embed, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Embed{}, fmt.Errorf("reviews: read embed: %w", err)
	}
	return SplitEmbed(raw)
}

// SplitEmbed pulls every script element out of raw, wherever it is nested,
// and renders the remaining nodes as markup. Top-level comments are dropped.
func SplitEmbed(raw []byte) (Embed, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Embed{}, ErrEmptyEmbed
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(raw), body)
	if err != nil {
		return Embed{}, fmt.Errorf("reviews: parse embed: %w", err)
	}

	var embed Embed
	var markup bytes.Buffer
	for _, n := range nodes {
		for _, script := range extractScripts(n) {
			rendered, err := renderNode(script)
			if err != nil {
				return Embed{}, err
			}
			embed.Scripts = append(embed.Scripts, template.HTML(rendered))
		}
		if n.Type == html.CommentNode || (n.Type == html.ElementNode && n.DataAtom == atom.Script) {
			continue
		}
		if err := html.Render(&markup, n); err != nil {
			return Embed{}, fmt.Errorf("reviews: render embed: %w", err)
		}
	}
	embed.Markup = template.HTML(strings.TrimSpace(markup.String()))

	if embed.Empty() {
		return Embed{}, ErrEmptyEmbed
	}
	return embed, nil
}

// extractScripts returns script elements in document order and detaches
// nested ones from their parents. A top-level script is returned as is.
func extractScripts(n *html.Node) []*html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Script {
		return []*html.Node{rebuildScript(n)}
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && c.DataAtom == atom.Script {
			out = append(out, rebuildScript(c))
			n.RemoveChild(c)
		} else {
			out = append(out, extractScripts(c)...)
		}
		c = next
	}
	return out
}

// rebuildScript copies attributes and inline text onto a detached element.
func rebuildScript(src *html.Node) *html.Node {
	dst := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script}
	dst.Attr = append(dst.Attr, src.Attr...)
	var text strings.Builder
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
		}
	}
	if text.Len() > 0 {
		dst.AppendChild(&html.Node{Type: html.TextNode, Data: text.String()})
	}
	return dst
}

func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", fmt.Errorf("reviews: render script: %w", err)
	}
	return buf.String(), nil
}
