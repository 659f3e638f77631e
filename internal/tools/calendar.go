package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/config"
)

// ErrCalendarNotConfigured means no credentials or token file is available.
var ErrCalendarNotConfigured = errors.New("google calendar is not configured")

// Calendar inserts events through the Google Calendar API. The service is
// built on first use from the OAuth files in the config.
type Calendar struct {
	cfg config.CalendarConfig

	once    sync.Once
	svc     *calendar.Service
	initErr error
}

// NewCalendar wraps an existing service, mostly for tests.
func NewCalendar(svc *calendar.Service, cfg config.CalendarConfig) *Calendar {
	c := &Calendar{cfg: cfg, svc: svc}
	c.once.Do(func() {})
	return c
}

func (c *Calendar) service(ctx context.Context) (*calendar.Service, error) {
	c.once.Do(func() {
		c.svc, c.initErr = newCalendarService(ctx, c.cfg)
	})
	return c.svc, c.initErr
}

func newCalendarService(ctx context.Context, cfg config.CalendarConfig) (*calendar.Service, error) {
	if cfg.CredentialsFile == "" || cfg.TokenFile == "" {
		return nil, ErrCalendarNotConfigured
	}
	oc, err := oauthConfig(cfg)
	if err != nil {
		return nil, err
	}
	token, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: no auth token at %s - run 'aegis calendar auth' first", ErrCalendarNotConfigured, cfg.TokenFile)
	}
	// The service outlives the first tool call's context.
	client := oc.Client(context.WithoutCancel(ctx), token)
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}
	return svc, nil
}

func oauthConfig(cfg config.CalendarConfig) (*oauth2.Config, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read credentials file: %v", ErrCalendarNotConfigured, err)
	}
	oc, err := google.ConfigFromJSON(b, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return oc, nil
}

// AddEvent creates an event and returns its web link. start and end are
// ISO timestamps as accepted by eventDateTime.
func (c *Calendar) AddEvent(ctx context.Context, summary, start, end string) (string, error) {
	startAt, err := eventDateTime(start)
	if err != nil {
		return "", err
	}
	endAt, err := eventDateTime(end)
	if err != nil {
		return "", err
	}
	svc, err := c.service(ctx)
	if err != nil {
		return "", err
	}
	tz := c.cfg.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	calendarID := c.cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	ev := &calendar.Event{
		Summary:     summary,
		Description: "Booked via AEGIS health assistant",
		Start:       &calendar.EventDateTime{DateTime: startAt, TimeZone: tz},
		End:         &calendar.EventDateTime{DateTime: endAt, TimeZone: tz},
	}
	created, err := svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("inserting calendar event: %w", err)
	}
	return created.HtmlLink, nil
}

// AuthorizeCalendar runs the interactive OAuth flow and saves the token.
func AuthorizeCalendar(ctx context.Context, cfg config.CalendarConfig, in io.Reader, out io.Writer) error {
	oc, err := oauthConfig(cfg)
	if err != nil {
		return err
	}
	authURL := oc.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Go to the following link in your browser then type the authorization code:\n%v\n", authURL)

	var code string
	if _, err := fmt.Fscan(in, &code); err != nil {
		return fmt.Errorf("unable to read authorization code: %w", err)
	}
	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	if err := saveToken(cfg.TokenFile, tok); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token saved to %s\n", cfg.TokenFile)
	return nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("writing oauth token: %w", err)
	}
	return nil
}

// eventDateTime normalises an ISO timestamp for the Calendar API. Times
// with an offset keep it; bare local times are read in the calendar's
// configured time zone.
func eventDateTime(s string) (string, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(time.RFC3339), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02T15:04:05"), nil
		}
	}
	return "", fmt.Errorf("cannot parse time %q, use ISO format like 2026-10-27T10:00:00", s)
}
