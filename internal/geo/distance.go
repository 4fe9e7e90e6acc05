package geo

import (
	"math"
	"sort"

	"comphub/server/internal/models"
)

// earthRadiusMiles matches the constant downstream valuation tooling was
// calibrated against.
const earthRadiusMiles = 3958.8

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the great-circle distance between two points in miles.
func Haversine(a, b models.Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMiles * c
}

// RankedListing pairs a listing with its distance from the subject. Distance
// keeps full precision; round only at the output boundary.
type RankedListing struct {
	models.ListingRecord
	Distance float64 `json:"distance"`
}

// RoundedDistance is the 2-decimal figure exposed in responses.
func (r RankedListing) RoundedDistance() float64 {
	return math.Round(r.Distance*100) / 100
}

// RankByDistance filters candidates to those within radius miles of the
// subject, sorts ascending by distance, and truncates to topN. Candidates
// missing either coordinate are excluded before any distance math. Ties keep
// the fetcher's original relative order.
func RankByDistance(subject models.Coordinate, candidates []models.ListingRecord, radiusMiles float64, topN int) []RankedListing {
	ranked := make([]RankedListing, 0, len(candidates))
	for _, c := range candidates {
		coords, ok := c.Coords()
		if !ok {
			continue
		}
		d := Haversine(subject, coords)
		if d > radiusMiles {
			continue
		}
		ranked = append(ranked, RankedListing{ListingRecord: c, Distance: d})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	return ranked
}
