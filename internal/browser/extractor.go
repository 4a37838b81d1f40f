package browser

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// Article holds the readable content extracted from a page.
type Article struct {
	Title       string
	Byline      string
	Content     string // cleaned HTML
	TextContent string // plain text
	SiteName    string
	FinalURL    string
	StatusCode  int
	FetchTime   time.Duration
}

// Link is a numbered hyperlink found in the rendered page. URL is absolute.
type Link struct {
	Index int
	Text  string
	URL   string
}

// Extract takes a FetchResult and extracts the readable article content.
// Non-HTML bodies are shown preformatted.
func Extract(result *FetchResult) (*Article, error) {
	if !IsHTML(result.ContentType) {
		return &Article{
			Title:       result.FinalURL,
			Content:     "<pre>" + html.EscapeString(string(result.Body)) + "</pre>",
			TextContent: string(result.Body),
			FinalURL:    result.FinalURL,
			StatusCode:  result.StatusCode,
			FetchTime:   result.Duration,
		}, nil
	}

	parsedURL, err := url.Parse(result.FinalURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(result.Body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("extracting article: %w", err)
	}

	title := article.Title
	if title == "" {
		title = result.FinalURL
	}
	return &Article{
		Title:       title,
		Byline:      article.Byline,
		Content:     article.Content,
		TextContent: article.TextContent,
		SiteName:    article.SiteName,
		FinalURL:    result.FinalURL,
		StatusCode:  result.StatusCode,
		FetchTime:   result.Duration,
	}, nil
}
