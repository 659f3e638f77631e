package tools

import (
	"strings"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/capability"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
)

func withLocation(args capability.Args, loc domain.Location) capability.Args {
	if loc.Known() {
		args["lat"] = loc.Lat
		args["lon"] = loc.Lon
	}
	return args
}

func locationArg(args capability.Args) domain.Location {
	lat, ok1 := args.Float("lat")
	lon, ok2 := args.Float("lon")
	if !ok1 || !ok2 {
		return domain.Location{}
	}
	return domain.Location{Lat: lat, Lon: lon}
}

func userID(args capability.Args) int64 {
	id, _ := args.Int64("user_id")
	return id
}

// bindLocate: facility type, then everything after the first comma is the city.
func bindLocate(raw string, env capability.Env) (capability.Args, error) {
	facility, city, _ := capability.SplitFirst(raw)
	if facility == "" {
		facility = "hospital"
	}
	return withLocation(capability.Args{"facility_type": facility, "city": city}, env.Location), nil
}

func (t *Toolset) bindFindHospital(raw string, env capability.Env) (capability.Args, error) {
	city := strings.TrimSpace(raw)
	if city == "" {
		city = t.cfg.Maps.DefaultCity
	}
	return withLocation(capability.Args{"city": city}, env.Location), nil
}

func bindProviders(raw string, env capability.Env) (capability.Args, error) {
	specialty, location, _ := capability.SplitFirst(raw)
	if specialty == "" {
		return nil, &capability.ArgumentError{Format: "specialty, location", Provided: strings.TrimSpace(raw)}
	}
	args := capability.Args{"specialty": specialty, "location": location}
	if location == "" {
		withLocation(args, env.Location)
	}
	return args, nil
}

func bindBooking(raw string, env capability.Env) (capability.Args, error) {
	name, when, _ := capability.SplitFirst(raw)
	if name == "" {
		return nil, &capability.ArgumentError{Format: "physician_name, time", Provided: strings.TrimSpace(raw)}
	}
	if when == "" {
		when = "Unknown Time"
	}
	return capability.Args{"name": name, "time": when, "user_id": env.UserID}, nil
}

func bindSafety(raw string, _ capability.Env) (capability.Args, error) {
	med, symptom, ok := capability.SplitFirst(raw)
	if !ok || med == "" || symptom == "" {
		return nil, &capability.ArgumentError{Format: "medication, symptom", Provided: strings.TrimSpace(raw)}
	}
	return capability.Args{"medication": med, "symptom": symptom}, nil
}

func bindDays(raw string, env capability.Env) (capability.Args, error) {
	return capability.Args{"days": capability.DigitsOr(raw, 7), "user_id": env.UserID}, nil
}

func bindHours(raw string, env capability.Env) (capability.Args, error) {
	return capability.Args{"hours": capability.DigitsOr(raw, 24), "user_id": env.UserID}, nil
}

func bindECG(raw string, _ capability.Env) (capability.Args, error) {
	parts := capability.SplitArgs(raw)
	return capability.Args{
		"duration":   capability.DigitsOr(capability.Field(parts, 0), 10),
		"heart_rate": capability.DigitsOr(capability.Field(parts, 1), 70),
	}, nil
}

// systolic accepts "150" or "150/95".
func systolic(s string) (int, bool) {
	head, _, _ := strings.Cut(s, "/")
	return capability.Digits(head)
}

// vitalsArgs binds hr, spo2 and bp from the first three fields; fields that
// are not numbers are left unset.
func vitalsArgs(parts []string) capability.Args {
	args := capability.Args{}
	if hr, ok := capability.Digits(strings.TrimSuffix(capability.Field(parts, 0), "bpm")); ok {
		args["heart_rate"] = hr
	}
	if o, ok := capability.Digits(strings.TrimSuffix(capability.Field(parts, 1), "%")); ok {
		args["spo2"] = o
	}
	if bp, ok := systolic(capability.Field(parts, 2)); ok {
		args["systolic"] = bp
	}
	return args
}

func bindVitals(raw string, env capability.Env) (capability.Args, error) {
	args := vitalsArgs(capability.SplitArgs(raw))
	args["user_id"] = env.UserID
	return args, nil
}

func bindEmergencyResponse(raw string, env capability.Env) (capability.Args, error) {
	parts := capability.SplitArgs(raw)
	args := vitalsArgs(parts)
	location := "Unknown"
	if len(parts) > 3 {
		if loc := strings.Join(parts[3:], ", "); loc != "" {
			location = loc
		}
	}
	args["location"] = location
	args["user_id"] = env.UserID
	return withLocation(args, env.Location), nil
}

func (t *Toolset) bindAlert(raw string, env capability.Env) (capability.Args, error) {
	msg := strings.TrimSpace(raw)
	if msg == "" {
		return nil, &capability.ArgumentError{Format: "message", Provided: msg}
	}
	return capability.Args{"message": msg, "contact": t.cfg.Emergency.ContactNumber, "user_id": env.UserID}, nil
}

func bindDispatch(raw string, env capability.Env) (capability.Args, error) {
	parts := capability.SplitArgs(raw)
	if strings.TrimSpace(raw) == "" || len(parts) < 3 {
		return nil, &capability.ArgumentError{Format: "patient_name, condition, location", Provided: strings.TrimSpace(raw)}
	}
	return capability.Args{
		"patient":   parts[0],
		"condition": parts[1],
		"location":  strings.Join(parts[2:], ", "),
		"user_id":   env.UserID,
	}, nil
}

func bindEmergencyCall(raw string, env capability.Env) (capability.Args, error) {
	reason := strings.TrimSpace(raw)
	if reason == "" {
		reason = "Emergency assistance requested"
	}
	return capability.Args{"reason": reason, "user_id": env.UserID}, nil
}
