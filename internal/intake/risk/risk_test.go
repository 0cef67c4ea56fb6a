package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medinauts/internal/intake/models"
)

func TestStratify_SafetyOverride(t *testing.T) {
	cases := []struct {
		name       string
		result     models.PredictionResult
		wantStage  int
		wantColor  Color
		overridden bool
		highRisk   bool
	}{
		{"threshold is inclusive", models.PredictionResult{Stage: 0, RiskScore: 50}, 3, ColorAdvanced, true, true},
		{"high score stage 0", models.PredictionResult{Stage: 0, RiskScore: 95}, 3, ColorAdvanced, true, true},
		{"just below threshold", models.PredictionResult{Stage: 0, RiskScore: 49}, 0, ColorSafe, false, false},
		{"49.99 stays low", models.PredictionResult{Stage: 0, RiskScore: 49.99}, 0, ColorSafe, false, false},
		{"stage 2 low score unchanged", models.PredictionResult{Stage: 2, RiskScore: 10}, 2, ColorModerate, false, false},
		{"stage 1 high score keeps stage color", models.PredictionResult{Stage: 1, RiskScore: 80}, 1, ColorMild, false, true},
		{"stage 4", models.PredictionResult{Stage: 4, RiskScore: 99}, 4, ColorSevere, false, true},
		{"stage above range low score reads as stage 0", models.PredictionResult{Stage: 7, RiskScore: 10}, 0, ColorSafe, false, false},
		{"negative stage low score reads as stage 0", models.PredictionResult{Stage: -1, RiskScore: 0}, 0, ColorSafe, false, false},
		{"stage above range high score is overridden", models.PredictionResult{Stage: 9, RiskScore: 80}, 3, ColorAdvanced, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Stratify(tc.result)
			assert.Equal(t, tc.wantStage, got.EffectiveStage)
			assert.Equal(t, tc.wantColor, got.Color)
			assert.Equal(t, tc.overridden, got.Overridden)
			assert.Equal(t, tc.highRisk, got.HighRisk)
		})
	}
}

func TestStratify_DoesNotModifyResult(t *testing.T) {
	result := models.PredictionResult{Stage: 0, RiskScore: 72, Label: "No Heart Disease"}
	_ = Stratify(result)
	assert.Equal(t, 0, result.Stage)
}

func TestScenarioB_DiscordantResultShownAsHighRisk(t *testing.T) {
	got := Stratify(models.PredictionResult{Stage: 0, RiskScore: 72})
	assert.Equal(t, ColorAdvanced, got.Color)
	assert.Equal(t, BannerHighRisk, got.Banner())
}

func TestStageColor_Table(t *testing.T) {
	assert.Equal(t, []Color{ColorSafe, ColorMild, ColorModerate, ColorAdvanced, ColorSevere},
		[]Color{StageColor(0), StageColor(1), StageColor(2), StageColor(3), StageColor(4)})
	assert.Equal(t, ColorSafe, StageColor(7))
	assert.Equal(t, "advanced", StageName(3))
	assert.Equal(t, "unknown", StageName(-1))
}
