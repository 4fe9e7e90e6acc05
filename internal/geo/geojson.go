package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"comphub/server/internal/models"
)

// FeatureCollection renders a ranked result set as GeoJSON for map widgets.
// The subject point is included as its own feature so widgets can center on
// it without a second request.
func FeatureCollection(subject models.Coordinate, ranked []RankedListing) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	subjectFeature := geojson.NewFeature(orb.Point{subject.Lng, subject.Lat})
	subjectFeature.Properties["role"] = "subject"
	fc.Append(subjectFeature)

	for _, r := range ranked {
		coords, ok := r.Coords()
		if !ok {
			continue
		}

		f := geojson.NewFeature(orb.Point{coords.Lng, coords.Lat})
		f.Properties["role"] = "comp"
		f.Properties["listingKey"] = r.ListingKey
		f.Properties["address"] = r.UnparsedAddress
		f.Properties["mlsStatus"] = r.MlsStatus
		f.Properties["distance"] = r.RoundedDistance()
		if r.ListPrice != nil {
			f.Properties["listPrice"] = *r.ListPrice
		}
		if r.ClosePrice != nil {
			f.Properties["closePrice"] = *r.ClosePrice
		}
		fc.Append(f)
	}

	return fc
}
