// Package risk reconciles the prediction's discrete stage with its continuous
// risk score into the stratification shown to the user.
package risk

import "medinauts/internal/intake/models"

// Color is a presentation token for a stage.
type Color string

const (
	ColorSafe     Color = "#22c55e"
	ColorMild     Color = "#eab308"
	ColorModerate Color = "#f97316"
	ColorAdvanced Color = "#ef4444"
	ColorSevere   Color = "#991b1b"
)

const (
	// HighRiskThreshold is inclusive: a score of exactly 50 is high risk.
	HighRiskThreshold = 50.0
	// OverrideStage is presented when a stage-0 result carries a high score.
	OverrideStage = 3
)

// Banner texts driven by the risk score alone.
const (
	BannerHighRisk = "Potential Risk Detected"
	BannerLowRisk  = "Low Risk Detected"
)

var stageColors = [models.MaxStage + 1]Color{ColorSafe, ColorMild, ColorModerate, ColorAdvanced, ColorSevere}

var stageNames = [models.MaxStage + 1]string{"safe", "mild", "moderate", "advanced", "severe"}

// EffectiveStratification is what the user is shown for one PredictionResult.
type EffectiveStratification struct {
	EffectiveStage int   `json:"effective_stage"`
	Color          Color `json:"color"`
	// HighRisk drives the banner and is independent of the displayed stage.
	HighRisk bool `json:"high_risk"`
	// Overridden is set when the safety override replaced the reported stage.
	Overridden bool `json:"overridden"`
}

// Banner returns the high/low risk banner text.
func (e EffectiveStratification) Banner() string {
	if e.HighRisk {
		return BannerHighRisk
	}
	return BannerLowRisk
}

// StageColor returns the base color of a stage. Stages outside 0..4 get the
// stage-0 color.
func StageColor(stage int) Color {
	if stage < 0 || stage > models.MaxStage {
		return ColorSafe
	}
	return stageColors[stage]
}

// StageName returns the severity name of a stage, "unknown" outside 0..4.
func StageName(stage int) string {
	if stage < 0 || stage > models.MaxStage {
		return "unknown"
	}
	return stageNames[stage]
}

// IsHighRisk reports whether score reaches the high-risk threshold.
func IsHighRisk(score float64) bool {
	return score >= HighRiskThreshold
}

// Stratify applies the safety override: a stage-0 result whose score is at or
// above the threshold is discordant and must not be presented as low risk, so
// it is shown with the advanced (stage 3) color. A stage outside 0..4 is read
// as stage 0, so EffectiveStage always stays in range. result itself is not
// changed.
func Stratify(result models.PredictionResult) EffectiveStratification {
	stage := result.Stage
	if stage < 0 || stage > models.MaxStage {
		stage = 0
	}
	high := IsHighRisk(result.RiskScore)
	if high && stage == 0 {
		return EffectiveStratification{
			EffectiveStage: OverrideStage,
			Color:          StageColor(OverrideStage),
			HighRisk:       true,
			Overridden:     true,
		}
	}
	return EffectiveStratification{
		EffectiveStage: stage,
		Color:          StageColor(stage),
		HighRisk:       high,
	}
}
