package subject

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"comphub/server/internal/mls"
	"comphub/server/internal/models"
)

// ErrCoordinatesNotResolved means every fallback was exhausted without
// producing both a latitude and a longitude.
var ErrCoordinatesNotResolved = errors.New("coordinates not resolved")

// suffixExpansions maps common street-suffix abbreviations to the full form
// the feed stores. Applied per token, case-insensitively.
var suffixExpansions = map[string]string{
	"dr":   "Drive",
	"ln":   "Lane",
	"st":   "Street",
	"ave":  "Avenue",
	"rd":   "Road",
	"ct":   "Court",
	"blvd": "Boulevard",
	"cir":  "Circle",
	"pl":   "Place",
	"ter":  "Terrace",
	"hwy":  "Highway",
	"pkwy": "Parkway",
}

// NormalizeStreetSuffix expands abbreviated street suffixes token by token,
// so "123 Oak Dr" matches a feed record stored as "123 Oak Drive".
func NormalizeStreetSuffix(address string) string {
	tokens := strings.Fields(address)
	for i, tok := range tokens {
		trimmed := strings.TrimRight(tok, ".,")
		if full, ok := suffixExpansions[strings.ToLower(trimmed)]; ok {
			if strings.ContainsRune(tok, ',') {
				full += ","
			}
			tokens[i] = full
		}
	}
	return strings.Join(tokens, " ")
}

type listingSearcher interface {
	FetchListings(ctx context.Context, q mls.Query) ([]models.ListingRecord, error)
}

type geocoder interface {
	Geocode(ctx context.Context, address string) (models.Coordinate, error)
}

// Resolver locates the subject property for a nearby-comps request.
type Resolver struct {
	feed     listingSearcher
	geocoder geocoder
	logger   *logrus.Logger
}

func NewResolver(feed listingSearcher, geocoder geocoder, logger *logrus.Logger) *Resolver {
	return &Resolver{feed: feed, geocoder: geocoder, logger: logger}
}

// Input carries whichever subject identifiers the caller supplied.
type Input struct {
	Address string
	Lat     *float64
	Lng     *float64
}

// Resolve returns the matched subject record (nil when no feed record
// matches) and its coordinates. Fallback order: explicit lat/lng, the
// matched record's coordinates, geocoding the matched record's address,
// geocoding the raw caller address.
//
// The feed lookup runs whenever an address is supplied, even alongside
// explicit coordinates: the matched record itself is part of the result,
// not just a coordinate source.
func (r *Resolver) Resolve(ctx context.Context, in Input) (*models.ListingRecord, models.Coordinate, error) {
	record := r.matchRecord(ctx, in.Address)

	if in.Lat != nil && in.Lng != nil {
		return record, models.Coordinate{Lat: *in.Lat, Lng: *in.Lng}, nil
	}

	if record != nil {
		if coords, ok := record.Coords(); ok {
			return record, coords, nil
		}
		if record.UnparsedAddress != "" {
			if coords, err := r.geocoder.Geocode(ctx, record.UnparsedAddress); err == nil {
				return record, coords, nil
			}
		}
	}

	if in.Address != "" {
		if coords, err := r.geocoder.Geocode(ctx, in.Address); err == nil {
			return record, coords, nil
		}
	}

	return nil, models.Coordinate{}, ErrCoordinatesNotResolved
}

// matchRecord looks for a feed record whose address contains the normalized
// caller address. A miss is not an error; coordinate fallbacks may still
// satisfy the request.
func (r *Resolver) matchRecord(ctx context.Context, address string) *models.ListingRecord {
	if address == "" {
		return nil
	}

	listings, err := r.feed.FetchListings(ctx, mls.Query{
		OrderBy: "ModificationTimestamp desc",
		Top:     200,
		Select:  mls.SelectNearby,
	})
	if err != nil {
		r.logger.WithError(err).Warn("Subject lookup against feed failed")
		return nil
	}

	needle := strings.ToLower(NormalizeStreetSuffix(address))
	for i := range listings {
		haystack := strings.ToLower(NormalizeStreetSuffix(listings[i].UnparsedAddress))
		if strings.Contains(haystack, needle) {
			r.logger.WithFields(logrus.Fields{
				"address":     address,
				"listing_key": listings[i].ListingKey,
			}).Info("Matched subject property in feed")
			return &listings[i]
		}
	}

	return nil
}
