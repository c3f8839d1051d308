// Package docloader implements the DocumentLoader (§6): turning a job's
// InputDescriptor into UTF-8 plain text for the pipeline. File-format
// decoding (PDF/DOCX) is out of scope per the spec's Non-goals; this
// package loads text submissions directly and fetches+strips HTML for URL
// submissions.
package docloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	cserrors "github.com/casestrainer/casestrainer/internal/errors"
	"github.com/casestrainer/casestrainer/pkg/models"
)

const maxFetchBytes = 10 << 20 // 10 MiB

// Loader resolves an InputDescriptor into plain text.
type Loader interface {
	Load(ctx context.Context, descriptor models.InputDescriptor, rawText string) (string, error)
}

// HTTPLoader is the default Loader: text descriptors pass through
// unchanged, url descriptors are fetched and stripped of markup, file
// descriptors are rejected (decoding is out of scope).
type HTTPLoader struct {
	client *http.Client
}

// New constructs an HTTPLoader with the given fetch timeout.
func New(timeout time.Duration) *HTTPLoader {
	return &HTTPLoader{client: &http.Client{Timeout: timeout}}
}

// Load returns rawText unchanged for InputText, fetches and extracts
// visible text for InputURL, and rejects InputFile as unsupported.
func (l *HTTPLoader) Load(ctx context.Context, descriptor models.InputDescriptor, rawText string) (string, error) {
	switch descriptor.Kind {
	case models.InputText:
		if strings.TrimSpace(rawText) == "" {
			return "", cserrors.Input("submission text is empty", cserrors.ErrEmptyText)
		}
		return rawText, nil

	case models.InputURL:
		return l.loadURL(ctx, descriptor.URL)

	case models.InputFile:
		return "", cserrors.Input(
			fmt.Sprintf("file submissions are not supported (got %q)", descriptor.Name),
			cserrors.ErrUnsupportedType,
		)

	default:
		return "", cserrors.Input("unknown input kind", cserrors.ErrUnsupportedType)
	}
}

func (l *HTTPLoader) loadURL(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", cserrors.Input("url submission missing url", cserrors.ErrEmptyText)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", cserrors.Input("invalid url", err)
	}
	req.Header.Set("User-Agent", "CaseStrainer/1.0 (Document Loader)")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", cserrors.TransientExternal("url fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", cserrors.TransientExternal(
			fmt.Sprintf("url fetch returned status %d", resp.StatusCode),
			cserrors.ErrFetchFailed,
		)
	}

	body := io.LimitReader(resp.Body, maxFetchBytes)
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "html") {
		return extractHTMLText(body)
	}

	text, err := io.ReadAll(body)
	if err != nil {
		return "", cserrors.Input("failed to read fetched document", cserrors.ErrDecodeFailed)
	}
	return string(text), nil
}

// extractHTMLText strips script/style content and collapses the document's
// visible text into a single plain-text blob, preserving block boundaries
// as newlines so the citation extractor's sentence heuristics still work.
func extractHTMLText(body io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", cserrors.Input("failed to parse html", cserrors.ErrDecodeFailed).WithContext("cause", err.Error())
	}

	doc.Find("script, style, nav, footer, header").Remove()

	var sb strings.Builder
	doc.Find("body").Find("p, div, li, td, h1, h2, h3, h4, h5, h6, blockquote").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	})

	if sb.Len() == 0 {
		sb.WriteString(strings.TrimSpace(doc.Find("body").Text()))
	}

	return sb.String(), nil
}
