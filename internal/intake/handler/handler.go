package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"medinauts/internal/delivery/email"
	"medinauts/internal/intake/models"
	"medinauts/internal/intake/report"
	"medinauts/internal/intake/service"
	dErrors "medinauts/pkg/domain-errors"
	"medinauts/pkg/platform/httputil"
	"medinauts/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,Renderer,Mailer

// Service is the intake controller as seen by the HTTP layer.
type Service interface {
	Start(ctx context.Context) (*service.View, error)
	Get(ctx context.Context, id string) (*service.View, error)
	Delete(ctx context.Context, id string) error
	Analyze(ctx context.Context, id string) (*service.View, error)
	Consent(ctx context.Context, id string, confirmed bool) (*service.View, error)
	Cancel(ctx context.Context, id string) (*service.View, error)
	Close(ctx context.Context, id string) (*service.View, error)
	Exit(ctx context.Context, id string) (*service.View, error)
	ScanAndMerge(ctx context.Context, id string, docs []models.Document) (*service.ScanSummary, error)
	EditField(ctx context.Context, id string, field models.Field, value models.Value) (*service.View, error)
	SetPatientName(ctx context.Context, id, name string) (*service.View, error)
	Submit(ctx context.Context, id string, token *string) (*service.SubmitResult, error)
	SubmitFeedback(ctx context.Context, id string, fb models.FeedbackRequest) error
	SkipFeedback(ctx context.Context, id string) error
	Report(ctx context.Context, id string) (report.Model, error)
}

// Renderer turns report markdown into a PDF.
type Renderer interface {
	Render(ctx context.Context, title, markdown string) ([]byte, error)
}

// Mailer delivers report emails.
type Mailer interface {
	Send(ctx context.Context, msg email.Message) error
}

// Handler serves the intake API.
type Handler struct {
	logger         *slog.Logger
	intake         Service
	renderer       Renderer
	mailer         Mailer
	maxUploadBytes int64
}

type Option func(*Handler)

// WithRenderer enables the PDF endpoint and PDF attachments.
func WithRenderer(r Renderer) Option {
	return func(h *Handler) {
		h.renderer = r
	}
}

// WithMailer enables the report email endpoint.
func WithMailer(m Mailer) Option {
	return func(h *Handler) {
		h.mailer = m
	}
}

// WithMaxUploadBytes bounds the multipart form of one scan batch.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

const defaultMaxUploadBytes = 20 << 20

// New creates a new intake Handler.
func New(intake Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:         logger,
		intake:         intake,
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the intake routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/intake/sessions", func(r chi.Router) {
		r.Post("/", h.HandleStart)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleDelete)

			r.Post("/analyze", h.navigation((Service).Analyze))
			r.Post("/consent", h.HandleConsent)
			r.Post("/cancel", h.navigation((Service).Cancel))
			r.Post("/close", h.navigation((Service).Close))
			r.Post("/exit", h.navigation((Service).Exit))

			r.Post("/documents", h.HandleScan)
			r.Put("/fields/{field}", h.HandleEditField)
			r.Put("/patient", h.HandlePatientName)
			r.Post("/submit", h.HandleSubmit)

			r.Get("/report", h.HandleReport)
			r.Get("/report.pdf", h.HandleReportPDF)
			r.Post("/report/email", h.HandleReportEmail)

			r.Post("/feedback", h.HandleFeedback)
			r.Post("/feedback/skip", h.HandleSkipFeedback)
		})
	})
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	view, err := h.intake.Start(r.Context())
	if err != nil {
		h.fail(w, r, "failed to start intake session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.intake.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "failed to load intake session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.intake.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "failed to delete intake session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// navigation adapts a parameterless gate event to a handler.
func (h *Handler) navigation(fire func(Service, context.Context, string) (*service.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := fire(h.intake, r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.fail(w, r, "navigation rejected", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, view)
	}
}

func (h *Handler) HandleConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ConsentRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	view, err := h.intake.Consent(ctx, chi.URLParam(r, "id"), *req.Confirmed)
	if err != nil {
		h.fail(w, r, "consent rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes)))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expected a multipart form with one or more \"file\" parts"))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup

	docs, err := readDocuments(r.MultipartForm.File["file"])
	if err != nil {
		h.fail(w, r, "failed to read uploaded documents", err)
		return
	}

	summary, err := h.intake.ScanAndMerge(ctx, chi.URLParam(r, "id"), docs)
	if err != nil {
		h.fail(w, r, "scan batch failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func readDocuments(files []*multipart.FileHeader) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not open uploaded file "+fh.Filename)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "could not read uploaded file "+fh.Filename)
		}
		docs = append(docs, models.Document{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}
	return docs, nil
}

func (h *Handler) HandleEditField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	field, ok := models.ParseField(chi.URLParam(r, "field"))
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "unknown field: "+chi.URLParam(r, "field")))
		return
	}
	req, ok := httputil.DecodeJSON[FieldRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	view, err := h.intake.EditField(ctx, chi.URLParam(r, "id"), field, req.Value)
	if err != nil {
		h.fail(w, r, "field edit rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandlePatientName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[PatientRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	view, err := h.intake.SetPatientName(ctx, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.fail(w, r, "patient name rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleSubmit forwards the caller's bearer token. A missing Authorization
// header reaches the service as a nil token.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	result, err := h.intake.Submit(r.Context(), chi.URLParam(r, "id"), bearerToken(r))
	if err != nil {
		h.fail(w, r, "submission failed", err)
		return
	}
	if result.Discarded {
		httputil.WriteJSON(w, http.StatusConflict, map[string]string{
			"error":             string(dErrors.CodeConflict),
			"error_description": "the intake was closed before the analysis completed",
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newSubmitResponse(result))
}

func bearerToken(r *http.Request) *string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return nil
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return nil
	}
	token = strings.TrimSpace(token)
	return &token
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	model, err := h.intake.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "report unavailable", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReportResponse{
		Report:   model,
		Markdown: report.Markdown(model),
		FileName: report.FileName(model),
	})
}

func (h *Handler) HandleReportPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.renderer == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "pdf rendering is not enabled"))
		return
	}
	model, err := h.intake.Report(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "report unavailable", err)
		return
	}
	pdf, err := h.renderer.Render(ctx, report.Title, report.Markdown(model))
	if err != nil {
		h.fail(w, r, "pdf rendering failed", dErrors.Wrap(err, dErrors.CodeInternal, "the report could not be rendered"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(model)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf) //nolint:errcheck // headers already sent
}

// HandleReportEmail mails the report to the given address, with the PDF
// attached when rendering is enabled and succeeds.
func (h *Handler) HandleReportEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.mailer == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "report email is not enabled"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[EmailRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	model, err := h.intake.Report(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "report unavailable", err)
		return
	}

	params := report.EmailParams(model, req.Email)
	msg := email.Message{
		To:      req.Email,
		Subject: "Your Medinauts cardiology report",
		Body:    email.ReportBody(params),
	}
	if h.renderer != nil {
		pdf, err := h.renderer.Render(ctx, report.Title, report.Markdown(model))
		if err != nil {
			h.logger.WarnContext(ctx, "pdf rendering failed, sending email without attachment",
				"request_id", request.GetRequestID(ctx),
				"error", err,
			)
		} else {
			msg.Attachments = append(msg.Attachments, email.Attachment{
				Name:        report.FileName(model),
				ContentType: "application/pdf",
				Content:     pdf,
			})
		}
	}

	if err := h.mailer.Send(ctx, msg); err != nil {
		h.fail(w, r, "report email failed", dErrors.Wrap(err, dErrors.CodeInternal, "the report email could not be sent"))
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *Handler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[FeedbackRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	err := h.intake.SubmitFeedback(ctx, chi.URLParam(r, "id"), models.FeedbackRequest{
		Rating:  req.Rating,
		Message: req.Message,
	})
	if err != nil {
		h.fail(w, r, "feedback rejected", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSkipFeedback(w http.ResponseWriter, r *http.Request) {
	if err := h.intake.SkipFeedback(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "feedback skip rejected", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail logs at warn for caller errors and at error for everything else,
// then writes the error envelope.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	attrs := []any{
		"request_id", request.GetRequestID(ctx),
		"session_id", chi.URLParam(r, "id"),
		"code", dErrors.CodeOf(err),
		"error", err,
	}
	if httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
