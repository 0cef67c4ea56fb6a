// Package pdf renders report markdown to a printable A4 PDF through a
// headless Chromium.
package pdf

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const defaultTimeout = 30 * time.Second

const styleCSS = `
body{font-family:Helvetica,Arial,sans-serif;color:#1f2937;margin:0;padding:0.6rem;}
.report-wrap{max-width:900px;margin:0 auto;}
h1{font-size:1.6rem;text-align:center;margin:0 0 0.25rem 0;letter-spacing:0.05em;}
h2{font-size:1.05rem;text-align:center;font-weight:400;color:#4b5563;margin:0 0 1rem 0;}
h3{font-size:1rem;border-bottom:1px solid #d1d5db;padding-bottom:0.2rem;}
table{width:100%;border-collapse:collapse;font-size:0.85rem;}
th,td{border:1px solid #d1d5db;padding:0.35rem 0.5rem;text-align:left;}
thead th{background:#f3f4f6;}
p.diagnosis{font-size:1.15rem;font-weight:700;margin-top:1.2rem;}
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
`

// Renderer converts markdown to PDF.
type Renderer struct {
	chromePath string
	timeout    time.Duration
}

type Option func(*Renderer)

// WithChromePath overrides browser detection.
func WithChromePath(path string) Option {
	return func(r *Renderer) {
		if path != "" {
			r.chromePath = path
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{
		chromePath: detectChromePath(),
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns the PDF bytes of the markdown document titled title.
func (r *Renderer) Render(ctx context.Context, title, markdown string) ([]byte, error) {
	htmlDoc, err := BuildHTML(title, markdown)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return pdf, nil
}

// BuildHTML converts markdown to a standalone HTML page. Raw HTML in the
// markdown is kept: the report colors its diagnosis line with it.
func BuildHTML(title, markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(strings.TrimSpace(title)) + "</title>" +
		"<style>" + styleCSS + "</style></head><body>" +
		"<div class='report-wrap'>" + applyPrintLayoutHooks(content.String()) + "</div>" +
		"</body></html>", nil
}

var reParamTable = regexp.MustCompile(`<table>`)

// applyPrintLayoutHooks keeps the parameter table on one page.
func applyPrintLayoutHooks(contentHTML string) string {
	return reParamTable.ReplaceAllString(contentHTML, `<table style="break-inside:avoid;page-break-inside:avoid;">`)
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
