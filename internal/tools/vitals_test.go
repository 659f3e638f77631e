package tools

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssess(t *testing.T) {
	tests := []struct {
		name string
		in   Vitals
		want Risk
	}{
		{"empty", Vitals{}, RiskNormal},
		{"normal", Vitals{HeartRate: 72, SpO2: 98, Systolic: 120}, RiskNormal},
		{"boundary normal", Vitals{HeartRate: 60, SpO2: 94, Systolic: 140}, RiskNormal},
		{"tachycardia", Vitals{HeartRate: 101}, RiskWarning},
		{"bradycardia", Vitals{HeartRate: 59}, RiskWarning},
		{"severe brady", Vitals{HeartRate: 39}, RiskCritical},
		{"severe tachy", Vitals{HeartRate: 151}, RiskCritical},
		{"low spo2", Vitals{SpO2: 93}, RiskWarning},
		{"hypoxemia", Vitals{SpO2: 89}, RiskCritical},
		{"elevated bp", Vitals{Systolic: 141}, RiskWarning},
		{"crisis", Vitals{Systolic: 181}, RiskCritical},
		{"hypotension", Vitals{Systolic: 89}, RiskCritical},
		{"critical dominates", Vitals{HeartRate: 110, SpO2: 85}, RiskCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Assess(tt.in).Risk)
		})
	}
}

func TestAssessmentString(t *testing.T) {
	a := Assess(Vitals{HeartRate: 110, SpO2: 85, Systolic: 120})
	out := a.String()
	assert.Contains(t, out, "Risk level: CRITICAL\n")
	assert.Contains(t, out, "- CRITICAL: Severe Hypoxemia (SpO2: 85%)")
	assert.Contains(t, out, "- Warning: Tachycardia (HR: 110 bpm)")
	assert.Contains(t, out, "Recommendation: IMMEDIATE MEDICAL ATTENTION REQUIRED")
}

func TestRiskOf(t *testing.T) {
	r, ok := RiskOf(Assess(Vitals{HeartRate: 30}).String())
	require.True(t, ok)
	assert.Equal(t, RiskCritical, r)

	r, ok = RiskOf("**HEALTH WARNING**\nRisk level: WARNING\n- Warning: x")
	require.True(t, ok)
	assert.Equal(t, RiskWarning, r)

	_, ok = RiskOf("Found 3 nearby hospital results")
	assert.False(t, ok)
}

func TestEmergencyResponseText(t *testing.T) {
	out := emergencyResponse(Assess(Vitals{HeartRate: 35}), "Hamra, Beirut", "140")
	assert.Contains(t, out, "**CRITICAL EMERGENCY DETECTED**")
	assert.Contains(t, out, "Patient Location: Hamra, Beirut")
	assert.Contains(t, out, "1. Call emergency services now: 140")
	assert.Contains(t, out, "5. Be ready to perform CPR if trained")

	out = emergencyResponse(Assess(Vitals{HeartRate: 72}), "Unknown", "140")
	assert.Contains(t, out, "**Vitals Assessment: Normal**")
	assert.NotContains(t, out, "Patient Location")
}

func TestAnalyzeRR(t *testing.T) {
	steady := []float64{1, 1, 1, 1, 1}
	h := analyzeRR(steady)
	assert.Equal(t, 5, h.Beats)
	assert.InDelta(t, 60, h.MeanHR, 0.001)
	assert.InDelta(t, 0, h.RMSSD, 0.001)
	assert.Equal(t, "High", h.StressLevel)

	varied := []float64{0.8, 0.9, 0.8, 0.9, 0.8}
	h = analyzeRR(varied)
	assert.InDelta(t, 100, h.RMSSD, 0.001)
	assert.Equal(t, "Low", h.StressLevel)

	assert.Equal(t, HRV{}, analyzeRR(nil))
}

func TestSimulateRRDeterministic(t *testing.T) {
	a := simulateRR(rand.New(rand.NewPCG(1, 2)), 30, 75)
	b := simulateRR(rand.New(rand.NewPCG(1, 2)), 30, 75)
	assert.Equal(t, a, b)

	var total float64
	for _, v := range a {
		total += v
	}
	assert.GreaterOrEqual(t, total, 30.0)
	assert.InDelta(t, 75, analyzeRR(a).MeanHR, 8)
}

func TestSimulateECGClampsInput(t *testing.T) {
	f := newFixture(t, nil, nil)
	out := f.invoke(t, "SIMULATE_ECG", "1, 500")
	assert.Contains(t, out, "- Duration: 5 s")
}
