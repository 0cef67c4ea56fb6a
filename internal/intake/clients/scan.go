package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"medinauts/internal/intake/models"
	"medinauts/internal/platform/tracing"
)

const scanStatusSuccess = "success"

// ScanResult is what one document yielded.
type ScanResult struct {
	Record models.PartialRecord
	// UnknownKeys are returned keys outside the clinical schema. They are
	// dropped from Record.
	UnknownKeys []string
}

// ScanClient uploads documents to the scan collaborator.
type ScanClient struct {
	base
}

// NewScanClient creates a client for {baseURL}/scan-report.
func NewScanClient(baseURL string, opts ...Option) *ScanClient {
	return &ScanClient{base: newBase(CollaboratorScan, baseURL, opts)}
}

type scanResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// Scan uploads doc as the multipart field "file" and decodes the extracted
// fields.
func (c *ScanClient) Scan(ctx context.Context, doc models.Document) (result *ScanResult, err error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanScan,
		tracing.String(tracing.AttrDocument, filepath.Base(doc.Name)),
		tracing.Int64(tracing.AttrDocumentLen, int64(len(doc.Content))),
	)
	defer func() { span.End(err) }()

	body, contentType, err := multipartBody(doc)
	if err != nil {
		return nil, NewError(CategoryInternal, c.name, 0, "failed to build upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/scan-report"), body)
	if err != nil {
		return nil, NewError(CategoryInternal, c.name, 0, "failed to create request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.Int64(tracing.AttrStatusCode, int64(resp.status)))
	if !isSuccess(resp.status) {
		return nil, c.statusError(resp)
	}

	var parsed scanResponse
	if err := json.Unmarshal(resp.body, &parsed); err != nil {
		return nil, NewError(CategoryContractMismatch, c.name, resp.status, "failed to parse response", err)
	}
	if parsed.Status != scanStatusSuccess {
		return nil, NewError(CategoryRejected, c.name, resp.status, fmt.Sprintf("scan status %q", parsed.Status), nil)
	}

	rec, unknown, err := models.DecodePartialRecord(parsed.Data)
	if err != nil {
		return nil, NewError(CategoryContractMismatch, c.name, resp.status, "failed to decode extracted fields", err)
	}
	span.SetAttributes(tracing.Int64(tracing.AttrFieldCount, int64(len(rec))))
	return &ScanResult{Record: rec, UnknownKeys: unknown}, nil
}

func multipartBody(doc models.Document) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	name := filepath.Base(doc.Name)
	if name == "." || name == "/" {
		name = "document"
	}
	contentType := doc.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(doc.Content)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(doc.Content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
