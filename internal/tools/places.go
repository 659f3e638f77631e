package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/config"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
)

const placesFieldMask = "places.displayName,places.formattedAddress,places.location,places.rating," +
	"places.userRatingCount,places.currentOpeningHours,places.nationalPhoneNumber"

// ErrMapsNotConfigured is returned by place searches without an API key.
var ErrMapsNotConfigured = errors.New("GOOGLE_MAPS_API_KEY is not configured")

// Place is one Google Places result.
type Place struct {
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string  `json:"formattedAddress"`
	Rating           float64 `json:"rating"`
	UserRatingCount  int     `json:"userRatingCount"`
	Phone            string  `json:"nationalPhoneNumber"`
	Location         struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	OpeningHours *struct {
		OpenNow *bool `json:"openNow"`
	} `json:"currentOpeningHours"`
}

// Maps wraps Google Places search and Nominatim geocoding.
type Maps struct {
	hc  *http.Client
	cfg config.MapsConfig
}

type circle struct {
	Center struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"center"`
	Radius float64 `json:"radius"`
}

func newCircle(loc domain.Location, radius float64) circle {
	var c circle
	c.Center.Latitude, c.Center.Longitude = loc.Lat, loc.Lon
	c.Radius = radius
	return c
}

// Nearby runs a Places nearby search for one place type.
func (m *Maps) Nearby(ctx context.Context, placeType string, loc domain.Location, radius float64) ([]Place, error) {
	body := map[string]any{
		"includedTypes":       []string{placeType},
		"maxResultCount":      5,
		"locationRestriction": map[string]any{"circle": newCircle(loc, radius)},
	}
	return m.search(ctx, "places:searchNearby", body)
}

// Text runs a Places text search biased towards loc.
func (m *Maps) Text(ctx context.Context, query string, loc domain.Location, radius float64) ([]Place, error) {
	body := map[string]any{
		"textQuery":      query,
		"maxResultCount": 5,
		"languageCode":   "en",
		"locationBias":   map[string]any{"circle": newCircle(loc, radius)},
	}
	return m.search(ctx, "places:searchText", body)
}

func (m *Maps) search(ctx context.Context, method string, body any) ([]Place, error) {
	if m.cfg.APIKey == "" {
		return nil, ErrMapsNotConfigured
	}
	headers := map[string]string{
		"X-Goog-Api-Key":   m.cfg.APIKey,
		"X-Goog-FieldMask": placesFieldMask,
	}
	var out struct {
		Places []Place `json:"places"`
	}
	endpoint := strings.TrimRight(m.cfg.PlacesURL, "/") + "/" + method
	if err := postJSON(ctx, m.hc, "Google Places", endpoint, headers, body, &out); err != nil {
		return nil, err
	}
	return out.Places, nil
}

// Geocode resolves a city name through Nominatim. ok is false when the
// name matched nothing.
func (m *Maps) Geocode(ctx context.Context, city string) (loc domain.Location, ok bool, err error) {
	query := city
	if hint := m.cfg.CountryHint; hint != "" && !strings.Contains(strings.ToLower(city), strings.ToLower(hint)) {
		query = city + ", " + hint
	}
	q := url.Values{"q": {query}, "format": {"json"}, "limit": {"1"}}
	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	headers := map[string]string{"User-Agent": "aegis-health-agent"}
	if err := getJSON(ctx, m.hc, "Nominatim", m.cfg.GeocodeURL+"?"+q.Encode(), headers, &hits); err != nil {
		return domain.Location{}, false, err
	}
	if len(hits) == 0 {
		return domain.Location{}, false, nil
	}
	lat, err1 := strconv.ParseFloat(hits[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(hits[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return domain.Location{}, false, fmt.Errorf("nominatim returned bad coordinates %q,%q", hits[0].Lat, hits[0].Lon)
	}
	return domain.Location{Lat: lat, Lon: lon}, true, nil
}

// Resolve picks the search origin: the caller's coordinates, else the
// geocoded city, else the configured default.
func (m *Maps) Resolve(ctx context.Context, known domain.Location, city string) domain.Location {
	if known.Known() {
		return known
	}
	if city != "" {
		if loc, ok, err := m.Geocode(ctx, city); err == nil && ok {
			return loc
		}
	}
	return domain.Location{Lat: m.cfg.DefaultLat, Lon: m.cfg.DefaultLon}
}

// placeType maps a free-text facility to one of the Places medical types.
func placeType(facility string) string {
	f := strings.ToLower(facility)
	switch {
	case containsAny(f, "pharma", "drug", "medication", "chemist"):
		return "pharmacy"
	case containsAny(f, "dentist", "dental", "teeth"):
		return "dentist"
	case containsAny(f, "doctor", "physician", "gp", "clinic"):
		return "doctor"
	default:
		return "hospital"
	}
}

var specialtyNames = map[string]string{
	"heart doctor":     "Cardiologist",
	"heart specialist": "Cardiologist",
	"eye doctor":       "Ophthalmologist",
	"skin doctor":      "Dermatologist",
	"bone doctor":      "Orthopedic surgeon",
	"brain doctor":     "Neurologist",
	"nerve doctor":     "Neurologist",
	"kidney doctor":    "Nephrologist",
	"lung doctor":      "Pulmonologist",
	"stomach doctor":   "Gastroenterologist",
	"children doctor":  "Pediatrician",
	"kids doctor":      "Pediatrician",
	"baby doctor":      "Pediatrician",
	"women doctor":     "Gynecologist",
	"pregnancy doctor": "Obstetrician",
	"mental health":    "Psychiatrist",
	"therapist":        "Psychologist",
	"foot doctor":      "Podiatrist",
	"ear doctor":       "ENT specialist",
	"cancer doctor":    "Oncologist",
	"blood doctor":     "Hematologist",
	"hormone doctor":   "Endocrinologist",
	"allergy doctor":   "Allergist",
	"joint doctor":     "Rheumatologist",
	"family doctor":    "General practitioner",
	"gp":               "General practitioner",
}

// specialtyName turns colloquial doctor names into specialty search terms.
func specialtyName(s string) string {
	if name, ok := specialtyNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return name
	}
	return s
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// formatPlaces renders results with navigation links from origin.
func formatPlaces(places []Place, origin domain.Location) string {
	entries := make([]string, 0, len(places))
	for i, p := range places {
		name := p.DisplayName.Text
		if name == "" {
			name = "Unknown"
		}
		rating := "N/A"
		if p.Rating > 0 {
			rating = strconv.FormatFloat(p.Rating, 'f', 1, 64)
			if p.UserRatingCount > 0 {
				rating += fmt.Sprintf(" from %d reviews", p.UserRatingCount)
			}
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%d. **%s** (rating %s)", i+1, name, rating)
		if p.OpeningHours != nil && p.OpeningHours.OpenNow != nil {
			if *p.OpeningHours.OpenNow {
				b.WriteString(" Open now")
			} else {
				b.WriteString(" Closed")
			}
		}
		address := p.FormattedAddress
		if address == "" {
			address = "No address"
		}
		fmt.Fprintf(&b, "\n   Address: %s", address)
		if p.Phone != "" {
			fmt.Fprintf(&b, "\n   Phone: %s", p.Phone)
		}
		dest := domain.Location{Lat: p.Location.Latitude, Lon: p.Location.Longitude}
		if !dest.Known() {
			dest = origin
		}
		fmt.Fprintf(&b, "\n   Navigate: https://www.google.com/maps/dir/?api=1&origin=%g,%g&destination=%g,%g&travelmode=driving",
			origin.Lat, origin.Lon, dest.Lat, dest.Lon)
		entries = append(entries, b.String())
	}
	return strings.Join(entries, "\n\n")
}
