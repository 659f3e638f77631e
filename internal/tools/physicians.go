package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/capability"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/store"
)

func formatPhysicians(ps []store.Physician) string {
	var b strings.Builder
	b.WriteString("Found in your contacts:\n")
	for _, p := range ps {
		fmt.Fprintf(&b, "- %s (%s) at %s. Phone: %s\n", p.Name, orDash(p.Specialty), orDash(p.Clinic), orDash(p.Phone))
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (t *Toolset) myPhysician(ctx context.Context, args capability.Args) (string, error) {
	found, err := t.records.SearchPhysicians(ctx, userID(args), args.String("query"))
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "No matching physician found in your personal contacts.", nil
	}
	return formatPhysicians(found), nil
}

func (t *Toolset) searchPhysician(ctx context.Context, args capability.Args) (string, error) {
	name := args.String("name")
	found, err := t.records.SearchPhysicians(ctx, userID(args), name)
	if err != nil {
		return "", err
	}
	if len(found) > 0 {
		return formatPhysicians(found), nil
	}
	where := "their clinic"
	if clinic := args.String("clinic"); clinic != "" {
		where = clinic
	}
	return fmt.Sprintf("Physician '%s' not found in your personal contacts. Try [FIND_PROVIDERS: specialty, location] or contact %s directly for contact information.", name, where), nil
}

func (t *Toolset) savePhysician(ctx context.Context, args capability.Args) (string, error) {
	p := store.Physician{
		PatientID: userID(args),
		Name:      args.String("name"),
		Specialty: args.String("specialty"),
		Clinic:    args.String("clinic"),
		Phone:     args.String("phone"),
	}
	created, err := t.records.SavePhysician(ctx, p)
	if err != nil {
		return "", err
	}
	if !created {
		return fmt.Sprintf("Physician '%s' is already in your contacts.", p.Name), nil
	}
	return fmt.Sprintf("Successfully saved %s to your personal contacts.", p.Name), nil
}

// patient returns the patient row, or a stand-in when none exists.
func (t *Toolset) patient(ctx context.Context, id int64) store.Patient {
	p, err := t.records.Patient(ctx, id)
	if err != nil {
		return store.Patient{ID: id, Name: "Patient"}
	}
	return p
}

func (t *Toolset) bookAppointment(ctx context.Context, args capability.Args) (string, error) {
	name, when := args.String("name"), args.String("time")
	if !t.twilio.CanWhatsApp() {
		return fmt.Sprintf("SUCCESS (SIMULATION): Appointment request sent to %s for %s. (Configure Twilio for real WhatsApp.)", name, when), nil
	}

	p := t.patient(ctx, userID(args))
	if p.Phone == "" {
		return "", errors.New("no phone number on file for the patient; cannot send a WhatsApp booking request")
	}
	body := fmt.Sprintf("AEGIS BOOKING REQUEST:\nDoctor: %s\nTime: %s\nPatient: %s\nStatus: Pending Confirmation", name, when, p.Name)
	msg, err := t.twilio.WhatsApp(ctx, p.Phone, body)
	if err != nil {
		return "", fmt.Errorf("failed to send WhatsApp booking: %w", err)
	}
	return fmt.Sprintf("SUCCESS: Booking request sent via WhatsApp. SID: %s", msg.SID), nil
}

func (t *Toolset) callPhysician(ctx context.Context, args capability.Args) (string, error) {
	name, phone, when := args.String("name"), args.String("phone"), args.String("time")
	if !t.twilio.CanCall() {
		return fmt.Sprintf("SIMULATION: A voice call would be made to %s at %s to request an appointment for %s. Configure a Twilio phone number for real calls.", name, phone, when), nil
	}

	p := t.patient(ctx, userID(args))
	callback := p.Phone
	if callback == "" {
		callback = "not provided"
	}
	script := twiml(
		"Hello, this is an automated call from the Aegis health assistant.",
		fmt.Sprintf("I am calling on behalf of %s to request an appointment with %s.", p.Name, name),
		fmt.Sprintf("The preferred time is %s.", when),
		fmt.Sprintf("Please call the patient back at %s to confirm. Thank you.", callback),
	)
	call, err := t.twilio.Call(ctx, phone, script)
	if err != nil {
		return "", fmt.Errorf("failed to initiate voice call: %w", err)
	}
	return fmt.Sprintf("Voice call initiated to %s.\n  Call SID: %s\n  Status: %s\n  Requesting appointment for: %s\n  Patient: %s\n  Callback: %s",
		name, call.SID, call.Status, when, p.Name, callback), nil
}

func (t *Toolset) addCalendar(ctx context.Context, args capability.Args) (string, error) {
	summary := args.String("summary")
	link, err := t.calendar.AddEvent(ctx, summary, args.String("start"), args.String("end"))
	if errors.Is(err, ErrCalendarNotConfigured) {
		return "Google Calendar credentials not found. Event NOT added (SIMULATION).", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Event created: %s", link), nil
}
