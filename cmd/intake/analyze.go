package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"medinauts/internal/delivery/pdf"
	"medinauts/internal/intake/decoder"
	"medinauts/internal/intake/models"
	"medinauts/internal/intake/report"
	"medinauts/internal/intake/risk"
	"medinauts/internal/intake/service"
	dErrors "medinauts/pkg/domain-errors"
)

type analyzeOptions struct {
	acceptDisclaimer bool
	set              []string
	patient          string
	dryRun           bool
	pdfPath          string
	showReport       bool
	rating           int
	message          string
}

type analyzeOutput struct {
	SessionID      string                        `json:"session_id"`
	Record         models.MergedRecord           `json:"record"`
	Missing        []models.Field                `json:"missing"`
	Scan           *service.ScanSummary          `json:"scan,omitempty"`
	Result         *models.PredictionResult      `json:"result,omitempty"`
	Stratification *risk.EffectiveStratification `json:"stratification,omitempty"`
	Banner         string                        `json:"banner,omitempty"`
	PDF            string                        `json:"pdf,omitempty"`
}

func newAnalyzeCmd(a *app) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Scan reports, complete the form and submit it for analysis",
		Long: `Run one analysis: every file is scanned and the extracted values are
merged in the order given. Values still missing (or wrong) are supplied with
--set key=value; "intake fields" lists the keys and codes.

Submitting requires a stored token (intake login). The medical disclaimer
must be accepted with --accept-disclaimer.

Examples:
  intake analyze --accept-disclaimer labs.pdf ecg.png
  intake analyze --accept-disclaimer labs.pdf --set thal=2 --set ca=0
  intake analyze --accept-disclaimer --dry-run labs.pdf
  intake analyze --accept-disclaimer labs.pdf --patient "Ada Lovelace" --pdf report.pdf --rating 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.acceptDisclaimer, "accept-disclaimer", false, "Confirm the medical disclaimer")
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "Set a field manually (key=value), repeatable")
	cmd.Flags().StringVar(&opts.patient, "patient", "", "Patient name printed on the report")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Stop before submitting and show the merged record")
	cmd.Flags().StringVar(&opts.pdfPath, "pdf", "", "Write the PDF report to this path")
	cmd.Flags().BoolVar(&opts.showReport, "report", false, "Print the report as markdown")
	cmd.Flags().IntVar(&opts.rating, "rating", 0, "Rate the analysis 1-5 (0 skips feedback)")
	cmd.Flags().StringVar(&opts.message, "message", "", "Feedback message sent with --rating")
	return cmd
}

func (a *app) runAnalyze(ctx context.Context, w io.Writer, files []string, opts *analyzeOptions) error {
	edits, err := parseEdits(opts.set)
	if err != nil {
		return err
	}
	docs, err := readDocuments(files)
	if err != nil {
		return err
	}

	svc := a.newService()
	view, err := svc.Start(ctx)
	if err != nil {
		return err
	}
	id := view.ID
	defer svc.Delete(context.WithoutCancel(ctx), id) //nolint:errcheck // in-memory session

	if _, err := svc.Analyze(ctx, id); err != nil {
		return err
	}
	if _, err := svc.Consent(ctx, id, opts.acceptDisclaimer); err != nil {
		return err
	}

	out := analyzeOutput{SessionID: id}
	if len(docs) > 0 {
		summary, err := svc.ScanAndMerge(ctx, id, docs)
		switch {
		case dErrors.HasCode(err, dErrors.CodeScanFailure):
			fmt.Fprintln(w, "Warning:", err)
		case err != nil:
			return err
		default:
			out.Scan = summary
			if !a.json {
				fmt.Fprintf(w, "Scanned %d of %d documents.\n", summary.Succeeded, len(docs))
				for _, f := range summary.Failures {
					fmt.Fprintf(w, "  %s: %s\n", f.Name, f.Reason)
				}
			}
		}
	}

	for _, e := range edits {
		if _, err := svc.EditField(ctx, id, e.field, e.value); err != nil {
			return err
		}
	}
	if opts.patient != "" {
		if _, err := svc.SetPatientName(ctx, id, opts.patient); err != nil {
			return err
		}
	}

	view, err = svc.Get(ctx, id)
	if err != nil {
		return err
	}
	out.Record = view.Record
	out.Missing = view.Missing

	if opts.dryRun {
		return a.printAnalysis(w, out)
	}

	token, err := a.tokens.Get(ctx)
	if err != nil {
		return err
	}
	result, err := svc.Submit(ctx, id, token)
	if err != nil {
		if !a.json {
			printRecord(w, view.Record, view.Missing)
		}
		return err
	}
	out.Result = &result.Result
	out.Stratification = &result.Stratification
	out.Banner = result.Stratification.Banner()

	model, err := svc.Report(ctx, id)
	if err != nil {
		return err
	}
	if opts.pdfPath != "" {
		if err := writePDF(ctx, a.cfg.ChromePath, opts.pdfPath, model); err != nil {
			fmt.Fprintln(w, "Warning: PDF report not written:", err)
		} else {
			out.PDF = opts.pdfPath
		}
	}

	if err := a.printAnalysis(w, out); err != nil {
		return err
	}
	if opts.showReport && !a.json {
		fmt.Fprintln(w)
		fmt.Fprint(w, report.Markdown(model))
	}

	if _, err := svc.Exit(ctx, id); err != nil {
		return err
	}
	if opts.rating == 0 {
		return svc.SkipFeedback(ctx, id)
	}
	return svc.SubmitFeedback(ctx, id, models.FeedbackRequest{Rating: opts.rating, Message: opts.message})
}

type fieldEdit struct {
	field models.Field
	value models.Value
}

func parseEdits(raw []string) ([]fieldEdit, error) {
	edits := make([]fieldEdit, 0, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: expected key=value", kv)
		}
		f, ok := models.ParseField(strings.TrimSpace(key))
		if !ok {
			return nil, fmt.Errorf("--set %q: unknown field %q (see intake fields)", kv, key)
		}
		edits = append(edits, fieldEdit{field: f, value: models.Text(strings.TrimSpace(value))})
	}
	return edits, nil
}

func readDocuments(paths []string) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		docs = append(docs, models.Document{Name: filepath.Base(p), ContentType: contentType, Content: content})
	}
	return docs, nil
}

func writePDF(ctx context.Context, chromePath, path string, model report.Model) error {
	data, err := pdf.New(pdf.WithChromePath(chromePath)).Render(ctx, report.Title, report.Markdown(model))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (a *app) printAnalysis(w io.Writer, out analyzeOutput) error {
	if a.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printRecord(w, out.Record, out.Missing)
	if out.Result == nil {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, out.Banner)
	fmt.Fprintf(w, "%s (reported: %s)\n", risk.StageName(out.Stratification.EffectiveStage), out.Result.Label)
	fmt.Fprintf(w, "Total Calculated Risk: %s%%\n", report.FormatScore(out.Result.RiskScore))
	if out.PDF != "" {
		fmt.Fprintln(w, "PDF report written to", out.PDF)
	}
	return nil
}

func printRecord(w io.Writer, record models.MergedRecord, missing []models.Field) {
	for _, f := range models.Schema() {
		v := record.Get(f)
		display := "(missing)"
		if !v.IsEmpty() {
			display = string(decoder.Decode(f, v))
		}
		fmt.Fprintf(w, "  %-32s %s\n", decoder.Label(f), display)
	}
	if len(missing) > 0 {
		keys := make([]string, len(missing))
		for i, f := range missing {
			keys[i] = string(f)
		}
		fmt.Fprintf(w, "Missing: %s (use --set key=value)\n", strings.Join(keys, ", "))
	}
}
