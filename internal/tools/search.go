package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/capability"
)

func (t *Toolset) search(ctx context.Context, args capability.Args) (string, error) {
	query := args.String("query")
	if query == "" {
		return "", errors.New("empty search query")
	}
	t.log.Debug().Str("query", query).Msg("searching MedlinePlus")
	return t.knowledge.Guidance(ctx, query)
}

func (t *Toolset) searchPubMed(ctx context.Context, args capability.Args) (string, error) {
	query := args.String("query")
	if query == "" {
		return "", errors.New("empty search query")
	}
	t.log.Debug().Str("query", query).Msg("searching PubMed")
	return t.knowledge.Articles(ctx, query)
}

func (t *Toolset) checkSafety(ctx context.Context, args capability.Args) (string, error) {
	return t.knowledge.MedicationSafety(ctx, args.String("medication"), args.String("symptom"))
}

// mapsError appends the local emergency numbers to place search failures.
func (t *Toolset) mapsError(err error) error {
	return fmt.Errorf("%w. For emergencies call %s", err, t.cfg.Emergency.Numbers)
}

func (t *Toolset) locate(ctx context.Context, args capability.Args) (string, error) {
	facility := args.StringOr("facility_type", "hospital")
	origin := t.maps.Resolve(ctx, locationArg(args), args.String("city"))
	radius := t.cfg.Maps.SearchRadius
	if radius <= 0 {
		radius = 5000
	}

	places, err := t.maps.Nearby(ctx, placeType(facility), origin, radius)
	if err != nil {
		return "", t.mapsError(err)
	}
	if len(places) == 0 {
		return fmt.Sprintf("No %s found within %.0f km of the location.", facility, radius/1000), nil
	}
	return fmt.Sprintf("Found %d nearby %s results:\n\n%s", len(places), facility, formatPlaces(places, origin)), nil
}

func (t *Toolset) findHospital(ctx context.Context, args capability.Args) (string, error) {
	origin := t.maps.Resolve(ctx, locationArg(args), args.String("city"))
	places, err := t.maps.Nearby(ctx, "hospital", origin, 10000)
	if err != nil {
		return "", t.mapsError(err)
	}
	if len(places) == 0 {
		return fmt.Sprintf("No hospitals found within 10 km. For emergencies call %s.", t.cfg.Emergency.Numbers), nil
	}
	return fmt.Sprintf("**Nearest Hospitals:**\n\n%s\n\nEmergency Numbers: %s",
		formatPlaces(places, origin), t.cfg.Emergency.Numbers), nil
}

func (t *Toolset) findProviders(ctx context.Context, args capability.Args) (string, error) {
	specialty := args.String("specialty")
	location := args.String("location")
	origin := t.maps.Resolve(ctx, locationArg(args), location)

	query := specialtyName(specialty)
	if location != "" {
		query += " in " + location
	}
	places, err := t.maps.Text(ctx, query, origin, 10000)
	if err != nil {
		return "", t.mapsError(err)
	}
	if len(places) == 0 {
		return fmt.Sprintf("No %s providers found near your location. Try specifying a different area.", specialty), nil
	}
	return fmt.Sprintf("Found %d %s providers:\n\n%s", len(places), specialty, formatPlaces(places, origin)), nil
}
