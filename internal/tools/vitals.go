package tools

import (
	"fmt"
	"strings"
)

// Risk is the outcome of a vitals assessment.
type Risk int

const (
	RiskNormal Risk = iota
	RiskWarning
	RiskCritical
)

func (r Risk) String() string {
	switch r {
	case RiskWarning:
		return "WARNING"
	case RiskCritical:
		return "CRITICAL"
	default:
		return "NORMAL"
	}
}

// RiskLinePrefix starts the line every assessment output carries. The
// escalation subscriber keys off it.
const RiskLinePrefix = "Risk level: "

// Vitals is a set of point measurements. Zero means not measured.
type Vitals struct {
	HeartRate int
	SpO2      int
	Systolic  int
}

// Assessment is the threshold evaluation of a Vitals sample.
type Assessment struct {
	Risk     Risk
	Critical []string
	Warnings []string
}

func (a *Assessment) raise(r Risk, finding string) {
	if r == RiskCritical {
		a.Critical = append(a.Critical, finding)
	} else {
		a.Warnings = append(a.Warnings, finding)
	}
	if r > a.Risk {
		a.Risk = r
	}
}

// Assess applies the fixed vital sign thresholds.
func Assess(v Vitals) Assessment {
	var a Assessment

	if hr := v.HeartRate; hr > 0 {
		switch {
		case hr < 40:
			a.raise(RiskCritical, fmt.Sprintf("Severe Bradycardia (HR: %d bpm)", hr))
		case hr > 150:
			a.raise(RiskCritical, fmt.Sprintf("Severe Tachycardia (HR: %d bpm)", hr))
		case hr < 60:
			a.raise(RiskWarning, fmt.Sprintf("Bradycardia (HR: %d bpm)", hr))
		case hr > 100:
			a.raise(RiskWarning, fmt.Sprintf("Tachycardia (HR: %d bpm)", hr))
		}
	}

	if o := v.SpO2; o > 0 {
		switch {
		case o < 90:
			a.raise(RiskCritical, fmt.Sprintf("Severe Hypoxemia (SpO2: %d%%)", o))
		case o < 94:
			a.raise(RiskWarning, fmt.Sprintf("Low Oxygen Saturation (SpO2: %d%%)", o))
		}
	}

	if bp := v.Systolic; bp > 0 {
		switch {
		case bp < 90:
			a.raise(RiskCritical, fmt.Sprintf("Hypotension (BP: %d mmHg)", bp))
		case bp > 180:
			a.raise(RiskCritical, fmt.Sprintf("Hypertensive Crisis (BP: %d mmHg)", bp))
		case bp > 140:
			a.raise(RiskWarning, fmt.Sprintf("Elevated Blood Pressure (BP: %d mmHg)", bp))
		}
	}
	return a
}

// Recommendation is the action line for the assessed risk.
func (a Assessment) Recommendation() string {
	switch a.Risk {
	case RiskCritical:
		return "IMMEDIATE MEDICAL ATTENTION REQUIRED. Consider calling emergency services."
	case RiskWarning:
		return "Monitor closely. Consider contacting healthcare provider."
	default:
		return "Vitals are within normal range."
	}
}

// String renders the assessment as tool output.
func (a Assessment) String() string {
	var b strings.Builder
	b.WriteString(RiskLinePrefix + a.Risk.String() + "\n")
	for _, c := range a.Critical {
		fmt.Fprintf(&b, "- CRITICAL: %s\n", c)
	}
	for _, w := range a.Warnings {
		fmt.Fprintf(&b, "- Warning: %s\n", w)
	}
	b.WriteString("Recommendation: " + a.Recommendation())
	return b.String()
}

// RiskOf extracts the risk level from assessment output. ok is false when
// the text carries no risk line.
func RiskOf(output string) (Risk, bool) {
	for line := range strings.Lines(output) {
		rest, found := strings.CutPrefix(strings.TrimSpace(line), RiskLinePrefix)
		if !found {
			continue
		}
		switch strings.TrimSpace(rest) {
		case "CRITICAL":
			return RiskCritical, true
		case "WARNING":
			return RiskWarning, true
		case "NORMAL":
			return RiskNormal, true
		}
	}
	return RiskNormal, false
}

// emergencyResponse renders the assessment with the action list a
// critical result calls for.
func emergencyResponse(a Assessment, location, numbers string) string {
	var b strings.Builder
	switch a.Risk {
	case RiskCritical:
		b.WriteString("**CRITICAL EMERGENCY DETECTED**\n")
	case RiskWarning:
		b.WriteString("**HEALTH WARNING**\n")
	default:
		b.WriteString("**Vitals Assessment: Normal**\n")
	}
	b.WriteString(a.String())
	b.WriteString("\n")

	switch a.Risk {
	case RiskCritical:
		fmt.Fprintf(&b, "\nPatient Location: %s\n", location)
		b.WriteString("\n**IMMEDIATE ACTION REQUIRED:**\n")
		fmt.Fprintf(&b, "1. Call emergency services now: %s\n", numbers)
		b.WriteString("2. Do not move the patient unless in danger\n")
		b.WriteString("3. Keep the patient calm and monitor breathing\n")
		b.WriteString("4. If the patient is unconscious, check for pulse and breathing\n")
		b.WriteString("5. Be ready to perform CPR if trained\n")
	case RiskWarning:
		b.WriteString("\nContact your healthcare provider if symptoms persist or worsen.\n")
	default:
		b.WriteString("\nContinue routine monitoring and maintain healthy habits.\n")
	}
	return b.String()
}
