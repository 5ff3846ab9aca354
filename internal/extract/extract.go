// Package extract turns a fetched HTML page into a Document: its title,
// description, paragraph text and images.
package extract

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ImageRef is an image found on a page. Src is always an absolute http(s) URL.
type ImageRef struct {
	Src   string `json:"src"`
	Alt   string `json:"alt"`
	Title string `json:"title"`
}

// Document is a simplified representation of extracted page content.
type Document struct {
	Title       string
	Description string
	// MainText is the text of every <p> element joined by single spaces.
	MainText string
	Images   []ImageRef
}

// Options controls optional parts of the extraction.
type Options struct {
	// Images enables collection of <img> elements.
	Images bool
}

// FromHTML extracts a Document from HTML. base is the page URL and is used
// to resolve relative image sources; a nil base drops relative sources.
func FromHTML(input []byte, base *url.URL, opts Options) Document {
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil || node == nil {
		return Document{}
	}
	doc := Document{
		Title:       strings.TrimSpace(findTitle(node)),
		Description: findDescription(node),
	}
	var paras []string
	var images []ImageRef
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "script", "style", "noscript", "template":
				return
			case "p":
				paras = append(paras, textOf(n))
				// Paragraphs can hold images; text of nested <p> is already
				// included by textOf, so only look for images below.
				if opts.Images {
					collectImages(n, base, &images)
				}
				return
			case "img":
				if opts.Images {
					if ref, ok := imageRef(n, base); ok {
						images = append(images, ref)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	doc.MainText = strings.Join(paras, " ")
	if len(images) > 0 {
		doc.Images = images
	}
	return doc
}

func findTitle(n *html.Node) string {
	head := findFirst(n, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil {
		return ""
	}
	return textOf(t)
}

// findDescription returns <meta name="description">, falling back to the
// Open Graph description when the plain tag is missing or empty.
func findDescription(n *html.Node) string {
	var desc, og string
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, "meta") {
			name := strings.ToLower(attr(cur, "name"))
			prop := strings.ToLower(attr(cur, "property"))
			content := strings.TrimSpace(attr(cur, "content"))
			switch {
			case name == "description" && desc == "":
				desc = content
			case prop == "og:description" && og == "":
				og = content
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(n)
	if desc != "" {
		return desc
	}
	return og
}

func findFirst(n *html.Node, tag string) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
			res = cur
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
			if res != nil {
				return
			}
		}
	}
	dfs(n)
	return res
}

// textOf concatenates all descendant text nodes, skipping scripts and styles.
func textOf(n *html.Node) string {
	var b strings.Builder
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		switch cur.Type {
		case html.TextNode:
			b.WriteString(cur.Data)
		case html.ElementNode:
			switch strings.ToLower(cur.Data) {
			case "script", "style", "noscript":
				return
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(n)
	return b.String()
}

func collectImages(n *html.Node, base *url.URL, out *[]ImageRef) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && strings.EqualFold(c.Data, "img") {
			if ref, ok := imageRef(c, base); ok {
				*out = append(*out, ref)
			}
		}
		collectImages(c, base, out)
	}
}

func imageRef(n *html.Node, base *url.URL) (ImageRef, bool) {
	src, ok := ResolveImageSrc(attr(n, "src"), base)
	if !ok {
		return ImageRef{}, false
	}
	return ImageRef{
		Src:   src,
		Alt:   strings.TrimSpace(attr(n, "alt")),
		Title: strings.TrimSpace(attr(n, "title")),
	}, true
}

// ResolveImageSrc resolves src against base. Sources starting with "data:"
// and results that are not absolute http(s) URLs are rejected.
func ResolveImageSrc(src string, base *url.URL) (string, bool) {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
		return "", false
	}
	u, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
