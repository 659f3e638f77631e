package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/config"
)

// Twilio is a minimal client for the Twilio Messages and Calls REST APIs.
type Twilio struct {
	hc  *http.Client
	cfg config.TwilioConfig
}

// TwilioResource is the subset of a created message or call we report.
type TwilioResource struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// Configured reports whether real requests can be made.
func (t *Twilio) Configured() bool { return t.cfg.Configured() }

// CanSMS reports whether SMS can be sent.
func (t *Twilio) CanSMS() bool { return t.Configured() && t.cfg.FromNumber != "" }

// CanCall reports whether voice calls can be placed.
func (t *Twilio) CanCall() bool { return t.Configured() && t.cfg.PhoneNumber != "" }

// CanWhatsApp reports whether WhatsApp messages can be sent.
func (t *Twilio) CanWhatsApp() bool { return t.Configured() && t.cfg.WhatsAppFrom != "" }

// SMS sends a text message from the configured SMS number.
func (t *Twilio) SMS(ctx context.Context, to, body string) (TwilioResource, error) {
	return t.create(ctx, "Messages.json", url.Values{"To": {to}, "From": {t.cfg.FromNumber}, "Body": {body}})
}

// WhatsApp sends a WhatsApp message from the configured sender.
func (t *Twilio) WhatsApp(ctx context.Context, to, body string) (TwilioResource, error) {
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}
	return t.create(ctx, "Messages.json", url.Values{"To": {to}, "From": {t.cfg.WhatsAppFrom}, "Body": {body}})
}

// Call places a voice call that speaks the given TwiML.
func (t *Twilio) Call(ctx context.Context, to, twiml string) (TwilioResource, error) {
	return t.create(ctx, "Calls.json", url.Values{
		"To":      {to},
		"From":    {t.cfg.PhoneNumber},
		"Twiml":   {twiml},
		"Timeout": {"30"},
	})
}

func (t *Twilio) create(ctx context.Context, resource string, form url.Values) (TwilioResource, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/%s",
		strings.TrimRight(t.cfg.BaseURL, "/"), url.PathEscape(t.cfg.AccountSID), resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return TwilioResource{}, fmt.Errorf("creating Twilio request: %w", err)
	}
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var out TwilioResource
	if err := doJSON(t.hc, "Twilio", req, &out); err != nil {
		return TwilioResource{}, err
	}
	return out, nil
}

// twiml builds a <Response> that speaks each line with a pause between.
func twiml(lines ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><Response>`)
	for i, line := range lines {
		if i > 0 {
			b.WriteString(`<Pause length="1"/>`)
		}
		b.WriteString(`<Say voice="alice">`)
		_ = xml.EscapeText(&b, []byte(line))
		b.WriteString(`</Say>`)
	}
	b.WriteString(`</Response>`)
	return b.String()
}
