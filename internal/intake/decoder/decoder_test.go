package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medinauts/internal/intake/models"
)

func TestValidate_EveryFieldHasARule(t *testing.T) {
	require.NoError(t, Validate())
	for _, f := range models.Schema() {
		assert.Contains(t, rules, f)
		assert.Contains(t, labels, f)
	}
}

// TestDecode_InRangeCodesAreTranslated checks that no in-range code of an
// enumerated field decodes to its raw number.
func TestDecode_InRangeCodesAreTranslated(t *testing.T) {
	for _, f := range models.Schema() {
		d, _ := models.DomainOf(f)
		if d.Kind != models.DomainEnumerated {
			continue
		}
		for _, code := range d.Codes {
			raw := models.Number(float64(code))
			assert.NotEqual(t, DisplayValue(raw.String()), Decode(f, raw), "%s=%d", f, code)
		}
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		field models.Field
		raw   models.Value
		want  DisplayValue
	}{
		{models.FieldCP, models.Number(2), "Non-Anginal Pain"},
		{models.FieldCP, models.Text("3"), "Asymptomatic"},
		{models.FieldSlope, models.Number(0), "Upsloping"},
		{models.FieldSlope, models.Number(2), "Downsloping"},
		{models.FieldThal, models.Number(0), "Unknown"},
		{models.FieldThal, models.Number(3), "Reversible Defect"},
		{models.FieldRestECG, models.Number(1), "ST-T Wave Abnormality"},
		{models.FieldSex, models.Number(1), "Male"},
		{models.FieldSex, models.Number(0), "Female"},
		{models.FieldFBS, models.Number(1), "> 120 mg/dL"},
		{models.FieldFBS, models.Number(0), "≤ 120 mg/dL"},
		{models.FieldExang, models.Number(1), "Yes"},
		{models.FieldCA, models.Number(1), "1 Vessel"},
		{models.FieldCA, models.Number(0), "0 Vessels"},
		{models.FieldTrestbps, models.Number(130), "130 mm Hg"},
		{models.FieldChol, models.Text("230"), "230 mg/dL"},
		{models.FieldThalach, models.Number(150), "150 BPM"},
		{models.FieldOldpeak, models.Number(1.5), "1.5"},
		{models.FieldAge, models.Number(54), "54"},
	}
	for _, tc := range cases {
		t.Run(string(tc.field)+"="+tc.raw.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, Decode(tc.field, tc.raw))
		})
	}
}

func TestDecode_FailsOpen(t *testing.T) {
	assert.Equal(t, DisplayValue("7"), Decode(models.FieldCP, models.Number(7)))
	assert.Equal(t, DisplayValue("1.5"), Decode(models.FieldSlope, models.Number(1.5)))
	assert.Equal(t, DisplayValue("n/a"), Decode(models.FieldThal, models.Text("n/a")))
	assert.Equal(t, DisplayValue("9"), Decode(models.FieldCA, models.Number(9)))
	assert.Equal(t, DisplayValue(""), Decode(models.FieldAge, models.Absent))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Chest Pain Type", Label(models.FieldCP))
	assert.Equal(t, "cac_score", Label("cac_score"))
}

func TestCodes(t *testing.T) {
	pairs, ok := Codes(models.FieldThal)
	require.True(t, ok)
	assert.Equal(t, []CodeLabel{{1, "Normal"}, {2, "Fixed Defect"}, {3, "Reversible Defect"}}, pairs)
	assert.Equal(t, "1: Normal", pairs[0].String())

	_, ok = Codes(models.FieldChol)
	assert.False(t, ok)
}
