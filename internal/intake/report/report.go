// Package report assembles the printable representation of one analysis.
// Rendering to PDF and delivering by email belong to the delivery packages.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"medinauts/internal/intake/decoder"
	"medinauts/internal/intake/models"
	"medinauts/internal/intake/risk"
)

const (
	Title            = "CARDIOLOGY REPORT"
	Subtitle         = "Patient Medical Report"
	defaultPatient   = "NA"
	fileNamePrefix   = "Medinauts_Report_"
	diagnosisPrefix  = "DIAGNOSIS: "
	riskLinePrefix   = "Total Calculated Risk: "
	noPredictionText = "No Data"
)

// Row is one (label, decoded value) pair of the clinical parameter table.
type Row struct {
	Field models.Field `json:"field"`
	Label string       `json:"label"`
	Value string       `json:"value"`
}

// Meta carries the presentation details that are not part of the analysis.
type Meta struct {
	PatientName string
	GeneratedAt time.Time
}

// Model is a well-formed report ready for the PDF and email collaborators.
type Model struct {
	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle"`
	PatientName string     `json:"patient_name"`
	GeneratedAt time.Time  `json:"generated_at"`
	Banner      string     `json:"banner"`
	Diagnosis   string     `json:"diagnosis"`
	RiskLine    string     `json:"risk_line"`
	RiskScore   float64    `json:"risk_score"`
	Color       risk.Color `json:"color"`
	Stage       int        `json:"effective_stage"`
	Rows        []Row      `json:"rows"`
}

// Compose builds the report for one normalized record and its stratified
// prediction. Rows follow schema order and cover every field.
func Compose(record models.NormalizedRecord, prediction models.PredictionResult, strat risk.EffectiveStratification, meta Meta) Model {
	rows := make([]Row, 0, len(models.Schema()))
	for _, f := range models.Schema() {
		rows = append(rows, Row{
			Field: f,
			Label: decoder.Label(f),
			Value: string(decoder.DecodeNumber(f, record.Value(f))),
		})
	}

	name := strings.TrimSpace(meta.PatientName)
	if name == "" {
		name = defaultPatient
	}
	generated := meta.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	label := strings.TrimSpace(prediction.Label)
	if label == "" {
		label = noPredictionText
	}

	return Model{
		Title:       Title,
		Subtitle:    Subtitle,
		PatientName: name,
		GeneratedAt: generated,
		Banner:      strat.Banner(),
		Diagnosis:   diagnosisPrefix + strings.ToUpper(label),
		RiskLine:    riskLinePrefix + FormatScore(prediction.RiskScore) + "%",
		RiskScore:   prediction.RiskScore,
		Color:       strat.Color,
		Stage:       strat.EffectiveStage,
		Rows:        rows,
	}
}

// FormatScore prints a risk score without trailing zeros, rounded to two decimals.
func FormatScore(score float64) string {
	return strconv.FormatFloat(float64(int64(score*100+0.5))/100, 'f', -1, 64)
}

// FileName returns the download name of the PDF for m.
func FileName(m Model) string {
	name := m.PatientName
	if name == defaultPatient {
		name = ""
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	return fileNamePrefix + name + ".pdf"
}

// Markdown renders m as GitHub-flavored markdown for the PDF renderer.
func Markdown(m Model) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", m.Title)
	fmt.Fprintf(&b, "## %s\n\n", m.Subtitle)
	fmt.Fprintf(&b, "**Patient Name:** %s  \n**Date:** %s\n\n", escape(m.PatientName), m.GeneratedAt.Format("2006-01-02"))
	b.WriteString("### Clinical Parameters\n\n| Parameter | Value |\n|---|---|\n")
	for _, r := range m.Rows {
		fmt.Fprintf(&b, "| %s | %s |\n", escape(r.Label), escape(r.Value))
	}
	fmt.Fprintf(&b, "\n---\n\n<p class=\"diagnosis\" style=\"color:%s\"><strong>%s</strong></p>\n\n", m.Color, escape(m.Diagnosis))
	fmt.Fprintf(&b, "**%s**\n\n", m.RiskLine)
	fmt.Fprintf(&b, "_%s_\n", m.Banner)
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer("|", "\\|", "<", "&lt;", ">", "&gt;", "*", "\\*", "_", "\\_")
	return r.Replace(s)
}

// EmailParams returns the template parameters of the report email.
func EmailParams(m Model, recipient string) map[string]string {
	params := map[string]string{
		"to_name":     m.PatientName,
		"to_email":    recipient,
		"risk_status": strings.TrimPrefix(m.Diagnosis, diagnosisPrefix),
		"risk_score":  FormatScore(m.RiskScore) + "%",
	}
	for _, r := range m.Rows {
		switch r.Field {
		case models.FieldAge, models.FieldTrestbps, models.FieldChol:
			params[string(r.Field)] = r.Value
		}
	}
	return params
}
