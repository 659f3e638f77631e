package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/capability"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/store"
)

func vitalsFrom(args capability.Args) Vitals {
	return Vitals{
		HeartRate: args.IntOr("heart_rate", 0),
		SpO2:      args.IntOr("spo2", 0),
		Systolic:  args.IntOr("systolic", 0),
	}
}

func (t *Toolset) checkVitals(_ context.Context, args capability.Args) (string, error) {
	v := vitalsFrom(args)
	if v == (Vitals{}) {
		return "", &capability.ArgumentError{Format: "heart_rate, spo2, systolic_bp", Provided: ""}
	}
	return Assess(v).String(), nil
}

func (t *Toolset) emergencyResponse(_ context.Context, args capability.Args) (string, error) {
	location := args.StringOr("location", "Unknown")
	if loc := locationArg(args); location == "Unknown" && loc.Known() {
		location = fmt.Sprintf("%.5f, %.5f", loc.Lat, loc.Lon)
	}
	return emergencyResponse(Assess(vitalsFrom(args)), location, t.cfg.Emergency.Numbers), nil
}

func (t *Toolset) alert(ctx context.Context, args capability.Args) (string, error) {
	body := "AEGIS ALERT: " + args.String("message")
	contact := args.String("contact")
	if !t.twilio.CanSMS() || contact == "" {
		t.log.Warn().Str("contact", contact).Msg("twilio not configured, alert simulated")
		return fmt.Sprintf("Alert sent successfully (SIMULATION). Message: %s", body), nil
	}
	msg, err := t.twilio.SMS(ctx, contact, body)
	if err != nil {
		return "", fmt.Errorf("failed to send alert: %w", err)
	}
	t.log.Info().Str("sid", msg.SID).Msg("alert sent")
	return fmt.Sprintf("Alert sent successfully. SID: %s", msg.SID), nil
}

func (t *Toolset) dispatchEmergency(ctx context.Context, args capability.Args) (string, error) {
	patient, condition, location := args.String("patient"), args.String("condition"), args.String("location")

	ev, err := t.records.LogEmergency(ctx, store.EmergencyEvent{
		PatientID: userID(args),
		Kind:      "dispatch",
		Severity:  "critical",
		Details:   fmt.Sprintf("%s: %s", patient, condition),
		Location:  location,
	})
	if err != nil {
		return "", err
	}

	body := fmt.Sprintf("AEGIS EMERGENCY DISPATCH\nPatient: %s\nCondition: %s\nLocation: %s\nEvent: %s",
		patient, condition, location, ev.ID)
	contact := t.cfg.Emergency.ContactNumber
	if !t.twilio.CanSMS() || contact == "" {
		return fmt.Sprintf("EMERGENCY DISPATCHED (SIMULATION). Event %s logged.\n%s\nCall %s now.", ev.ID, body, t.cfg.Emergency.Numbers), nil
	}
	msg, err := t.twilio.SMS(ctx, contact, body)
	if err != nil {
		return "", fmt.Errorf("event %s logged but dispatch SMS failed: %w", ev.ID, err)
	}
	return fmt.Sprintf("EMERGENCY DISPATCHED. SMS SID: %s. Event %s logged. Call %s now.", msg.SID, ev.ID, t.cfg.Emergency.Numbers), nil
}

func (t *Toolset) emergencyCall(ctx context.Context, args capability.Args) (string, error) {
	pid := userID(args)
	reason := args.StringOr("reason", "Emergency assistance requested")

	contacts, err := t.records.EmergencyContacts(ctx, pid)
	if err != nil {
		return "", err
	}
	if len(contacts) == 0 {
		return "", errors.New("no emergency contacts on file; add one before placing emergency calls")
	}
	contacts = contacts[:min(len(contacts), 3)]

	p := t.patient(ctx, pid)
	ev, err := t.records.LogEmergency(ctx, store.EmergencyEvent{
		PatientID: pid,
		Kind:      "call",
		Severity:  "critical",
		Details:   reason,
	})
	if err != nil {
		return "", err
	}

	if !t.twilio.CanCall() {
		var names []string
		for _, c := range contacts {
			names = append(names, fmt.Sprintf("%s (%s)", c.Name, c.Phone))
		}
		return fmt.Sprintf("SIMULATION: Emergency calls would be placed to %s. Reason: %s. Event %s logged.",
			strings.Join(names, ", "), reason, ev.ID), nil
	}

	script := twiml(
		"This is an emergency call from the Aegis health assistant.",
		fmt.Sprintf("%s needs help. Reason: %s.", p.Name, reason),
		fmt.Sprintf("Please contact them immediately or call %s.", t.cfg.Emergency.Numbers),
	)
	var b strings.Builder
	fmt.Fprintf(&b, "Emergency calls for: %s (event %s)\n", reason, ev.ID)
	placed := 0
	for _, c := range contacts {
		call, err := t.twilio.Call(ctx, c.Phone, script)
		if err != nil {
			t.log.Error().Err(err).Str("contact", c.Name).Msg("emergency call failed")
			fmt.Fprintf(&b, "- %s: FAILED (%v)\n", c.Name, err)
			continue
		}
		placed++
		fmt.Fprintf(&b, "- %s: call initiated, SID %s\n", c.Name, call.SID)
	}
	if placed == 0 {
		return "", fmt.Errorf("every emergency call failed:\n%s", b.String())
	}
	return b.String(), nil
}

func (t *Toolset) getEmergencyContacts(ctx context.Context, args capability.Args) (string, error) {
	cs, err := t.records.EmergencyContacts(ctx, userID(args))
	if err != nil {
		return "", err
	}
	if len(cs) == 0 {
		return "No emergency contacts on file.", nil
	}
	var b strings.Builder
	b.WriteString("Emergency contacts:\n")
	for _, c := range cs {
		rel := ""
		if c.Relationship != "" {
			rel = " (" + c.Relationship + ")"
		}
		fmt.Fprintf(&b, "%d. %s%s: %s\n", c.Priority, c.Name, rel, c.Phone)
	}
	return b.String(), nil
}
