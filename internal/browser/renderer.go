package browser

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/glamour"
)

// RenderedPage holds the final terminal-ready output of one load.
type RenderedPage struct {
	Title      string
	Content    string // styled terminal text
	Links      []Link
	URL        string
	StatusCode int
}

// Renderer turns articles into styled terminal text. The glamour renderer
// is cached per width; it is safe for concurrent use.
type Renderer struct {
	style string

	mu     sync.Mutex
	cached *glamour.TermRenderer
	width  int
}

// NewRenderer creates a renderer using a glamour standard style ("dark",
// "light", "notty", ...). An empty style means "dark".
func NewRenderer(style string) *Renderer {
	if style == "" {
		style = "dark"
	}
	return &Renderer{style: style}
}

// Render converts an Article's HTML content into styled terminal text. Link
// targets are resolved against the article's final URL.
func (r *Renderer) Render(article *Article, width int) *RenderedPage {
	if width <= 0 {
		width = 80
	}
	contentWidth := min(width-4, 100)

	page := &RenderedPage{
		Title:      article.Title,
		URL:        article.FinalURL,
		StatusCode: article.StatusCode,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		page.Content = article.TextContent
		return page
	}

	base, _ := url.Parse(article.FinalURL)
	conv := &mdConverter{base: base}

	var md strings.Builder
	if article.Title != "" {
		md.WriteString("# " + article.Title + "\n\n")
	}
	if article.Byline != "" {
		md.WriteString("*" + article.Byline + "*\n\n")
	}
	md.WriteString("---\n\n")
	doc.Find("body").Children().Each(func(_ int, s *goquery.Selection) {
		md.WriteString(conv.convertNode(s, 0))
	})

	rendered, err := r.glamour(md.String(), contentWidth)
	if err != nil {
		rendered = md.String()
	}
	page.Content = rendered
	page.Links = conv.links
	return page
}

func (r *Renderer) glamour(markdown string, width int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached == nil || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		r.cached = tr
		r.width = width
	}
	return r.cached.Render(markdown)
}

// mdConverter converts goquery HTML nodes to markdown, numbering links.
type mdConverter struct {
	base  *url.URL
	links []Link
}

func (c *mdConverter) convertNode(s *goquery.Selection, depth int) string {
	var sb strings.Builder

	switch tag := goquery.NodeName(s); tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		if text := strings.TrimSpace(s.Text()); text != "" {
			sb.WriteString(strings.Repeat("#", int(tag[1]-'0')) + " " + text + "\n\n")
		}
	case "p":
		var p strings.Builder
		c.convertInline(s, &p)
		if text := strings.TrimSpace(p.String()); text != "" {
			sb.WriteString(text + "\n\n")
		}
	case "a":
		sb.WriteString(c.convertLink(s))
	case "ul", "ol":
		sb.WriteString(c.convertList(s, tag == "ol", depth))
	case "blockquote":
		s.Children().Each(func(_ int, child *goquery.Selection) {
			content := c.convertNode(child, 0)
			for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
				sb.WriteString("> " + line + "\n")
			}
		})
		if s.Children().Length() == 0 {
			if text := strings.TrimSpace(s.Text()); text != "" {
				sb.WriteString("> " + text + "\n")
			}
		}
		sb.WriteString("\n")
	case "pre":
		sb.WriteString(convertCodeBlock(s))
	case "code":
		sb.WriteString("`" + s.Text() + "`")
	case "img":
		alt, _ := s.Attr("alt")
		if alt == "" {
			alt = "image"
		}
		src, _ := s.Attr("src")
		sb.WriteString(fmt.Sprintf("![%s](%s)\n\n", alt, c.resolve(src)))
	case "hr":
		sb.WriteString("\n---\n\n")
	case "table":
		sb.WriteString(convertTable(s))
	case "br":
		sb.WriteString("  \n")
	case "div", "article", "section", "main", "header", "footer", "figure", "span":
		s.Children().Each(func(_ int, child *goquery.Selection) {
			sb.WriteString(c.convertNode(child, depth))
		})
	case "figcaption":
		if text := strings.TrimSpace(s.Text()); text != "" {
			sb.WriteString("*" + text + "*\n\n")
		}
	default:
		if text := strings.TrimSpace(s.Text()); text != "" {
			sb.WriteString(text + "\n\n")
		}
	}
	return sb.String()
}

func (c *mdConverter) convertInline(s *goquery.Selection, sb *strings.Builder) {
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "#text":
			sb.WriteString(child.Text())
		case "a":
			sb.WriteString(c.convertLink(child))
		case "strong", "b":
			sb.WriteString("**")
			c.convertInline(child, sb)
			sb.WriteString("**")
		case "em", "i":
			sb.WriteString("*")
			c.convertInline(child, sb)
			sb.WriteString("*")
		case "code":
			sb.WriteString("`" + child.Text() + "`")
		case "br":
			sb.WriteString("  \n")
		case "ul", "ol":
			// handled by convertList
		default:
			c.convertInline(child, sb)
		}
	})
}

func (c *mdConverter) convertLink(s *goquery.Selection) string {
	href, _ := s.Attr("href")
	text := strings.TrimSpace(s.Text())
	if text == "" {
		text = href
	}
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return text
	}

	target := c.resolve(href)
	c.links = append(c.links, Link{Index: len(c.links) + 1, Text: text, URL: target})
	return fmt.Sprintf("[%s](%s) **[%d]**", text, target, len(c.links))
}

func (c *mdConverter) resolve(href string) string {
	if c.base == nil || href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return c.base.ResolveReference(ref).String()
}

func (c *mdConverter) convertList(s *goquery.Selection, ordered bool, depth int) string {
	var sb strings.Builder
	indent := strings.Repeat("  ", depth)

	s.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
		prefix := indent + "- "
		if ordered {
			prefix = fmt.Sprintf("%s%d. ", indent, i+1)
		}
		var item strings.Builder
		c.convertInline(li, &item)
		sb.WriteString(prefix + strings.TrimSpace(item.String()) + "\n")

		li.ChildrenFiltered("ul, ol").Each(func(_ int, child *goquery.Selection) {
			sb.WriteString(c.convertList(child, goquery.NodeName(child) == "ol", depth+1))
		})
	})
	return sb.String() + "\n"
}

func convertCodeBlock(s *goquery.Selection) string {
	code := s.Find("code")
	text := s.Text()
	lang := ""
	if code.Length() > 0 {
		text = code.Text()
		class, _ := code.Attr("class")
		if _, after, ok := strings.Cut(class, "language-"); ok {
			if f := strings.Fields(after); len(f) > 0 {
				lang = f[0]
			}
		}
	}
	return "```" + lang + "\n" + text + "\n```\n\n"
}

func convertTable(s *goquery.Selection) string {
	var headers []string
	s.Find("thead th, thead td").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(th.Text()))
	})

	var rows [][]string
	s.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("td, th").Each(func(_ int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		rows = append(rows, row)
	})

	if len(headers) == 0 {
		s.Find("tr").First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(cell.Text()))
		})
	}

	numCols := len(headers)
	for _, row := range rows {
		numCols = max(numCols, len(row))
	}
	if numCols == 0 {
		return ""
	}

	pad := func(cells []string) []string {
		for len(cells) < numCols {
			cells = append(cells, "")
		}
		return cells
	}

	var sb strings.Builder
	sb.WriteString("| " + strings.Join(pad(headers), " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", numCols) + "\n")
	for _, row := range rows {
		sb.WriteString("| " + strings.Join(pad(row), " | ") + " |\n")
	}
	sb.WriteString("\n")
	return sb.String()
}
