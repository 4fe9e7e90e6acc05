package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"comphub/server/config"
	"comphub/server/internal/format"
	"comphub/server/internal/geo"
	"comphub/server/internal/geocoding"
	"comphub/server/internal/maps"
	"comphub/server/internal/mls"
	"comphub/server/internal/models"
	"comphub/server/internal/stats"
	"comphub/server/internal/subject"
)

type Handler struct {
	feed     *mls.Client
	geocoder *geocoding.Geocoder
	resolver *subject.Resolver
	maps     *maps.Service
	logger   *logrus.Logger
}

func NewHandler(cfg *config.Config, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	cacheDir := cfg.GeocodeCacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "comphub", "geocode_cache")
	}

	timeout := time.Duration(cfg.HTTPTimeout) * time.Second

	feed := mls.NewClient(cfg.Replication.BaseURL, cfg.Replication.AccessToken, timeout, logger)
	geocoder := geocoding.NewGeocoder(cfg.GoogleMapsKey, logger, cacheDir)

	return &Handler{
		feed:     feed,
		geocoder: geocoder,
		resolver: subject.NewResolver(feed, geocoder, logger),
		maps:     maps.NewService(cfg.GoogleMapsKey, timeout, logger),
		logger:   logger,
	}
}

// upstreamError reports a feed failure with the upstream's error payload
// attached verbatim for diagnostics.
func (h *Handler) upstreamError(c *gin.Context, err error, message string) {
	h.requestLogger(c).WithError(err).Error(message)

	var upstream *mls.UpstreamError
	if errors.As(err, &upstream) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "detail": upstream.Body})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": message, "detail": err.Error()})
}

// GetComps runs the closed-sale statistics pipeline: date-bounded fetch,
// local bound filtering, reshape to comps, price-per-sqft classification.
func (h *Handler) GetComps(c *gin.Context) {
	var criteria models.FilterCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		h.requestLogger(c).WithError(err).Error("Failed to parse comps request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	if criteria.DaysSold == 0 {
		criteria.DaysSold = 180
	}

	// This flow filters on the sale date alone; status narrowing happens in
	// the downstream search endpoint.
	cutoff := time.Now().UTC().AddDate(0, 0, -criteria.DaysSold).Format("2006-01-02")
	filter := "CloseDate ge " + cutoff
	if criteria.State != "" {
		filter += fmt.Sprintf(" and StateOrProvince eq '%s'", mls.EscapeODataString(criteria.State))
	}

	listings, err := h.feed.FetchListings(c.Request.Context(), mls.Query{
		Filter:  filter,
		OrderBy: "CloseDate desc",
		Top:     50,
		Select:  mls.SelectStats,
	})
	if err != nil {
		h.upstreamError(c, err, "Failed to fetch comps")
		return
	}

	filtered := make([]models.ListingRecord, 0, len(listings))
	for _, l := range listings {
		if matchesLocalBounds(l, criteria) {
			filtered = append(filtered, l)
		}
	}

	c.JSON(http.StatusOK, gin.H{"comps": buildComps(filtered)})
}

// matchesLocalBounds applies the caller's bounds in memory; missing listing
// fields are treated as zero, matching upstream consumer expectations.
func matchesLocalBounds(l models.ListingRecord, cr models.FilterCriteria) bool {
	beds := intOrZero(l.BedroomsTotal)
	baths := intOrZero(l.BathroomsFull)
	price := floatOrZero(l.ClosePrice)
	sqft := floatOrZero(l.LivingArea)
	year := intOrZero(l.YearBuilt)

	if cr.MinBeds != nil && beds < *cr.MinBeds {
		return false
	}
	if cr.MaxBeds != nil && beds > *cr.MaxBeds {
		return false
	}
	if cr.MinBaths != nil && baths < *cr.MinBaths {
		return false
	}
	if cr.MaxBaths != nil && baths > *cr.MaxBaths {
		return false
	}
	if cr.MinPrice != nil && price < *cr.MinPrice {
		return false
	}
	if cr.MaxPrice != nil && price > *cr.MaxPrice {
		return false
	}
	if cr.MinSqft != nil && sqft < *cr.MinSqft {
		return false
	}
	if cr.MaxSqft != nil && sqft > *cr.MaxSqft {
		return false
	}
	if cr.MinYear != nil && year < *cr.MinYear {
		return false
	}
	if cr.MaxYear != nil && year > *cr.MaxYear {
		return false
	}
	if cr.Address != "" {
		addr := strings.ToLower(l.UnparsedAddress)
		if !strings.Contains(addr, strings.ToLower(cr.Address)) {
			return false
		}
	}
	return true
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// buildComps reshapes listings and applies set-level classification.
// Comparisons use full precision; emitted price-per-sqft is rounded.
func buildComps(listings []models.ListingRecord) []models.Comp {
	comps := make([]models.Comp, len(listings))
	ppsfs := make([]*float64, len(listings))

	for i, l := range listings {
		ppsfs[i] = stats.PricePerSqft(l.ClosePrice, l.LivingArea)

		address := l.UnparsedAddress
		if address == "" {
			address = "N/A"
		}
		var state *string
		if l.StateOrProvince != "" {
			s := l.StateOrProvince
			state = &s
		}

		comps[i] = models.Comp{
			ListingKey: l.ListingKey,
			Address:    address,
			State:      state,
			ListPrice:  l.ListPrice,
			ClosePrice: l.ClosePrice,
			CloseDate:  l.CloseDate,
			Beds:       l.BedroomsTotal,
			Baths:      l.BathroomsFull,
			Sqft:       l.LivingArea,
			YearBuilt:  l.YearBuilt,
			ARV:        stats.ARV(l.ClosePrice),
		}
	}

	set := stats.Compute(ppsfs)
	for i := range comps {
		comps[i].IsFixer = stats.IsFixer(ppsfs[i], set)
		comps[i].IsOutlier = stats.IsOutlier(ppsfs[i], set)
		if ppsfs[i] != nil {
			rounded := stats.Round2(*ppsfs[i])
			comps[i].PricePerSqft = &rounded
		}
	}

	return comps
}

// SearchComps is the raw comparable search: full filter builder, wide field
// selection, no reshaping.
func (h *Handler) SearchComps(c *gin.Context) {
	var criteria models.FilterCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		h.requestLogger(c).WithError(err).Error("Failed to parse search request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	orderBy := criteria.OrderBy
	if orderBy == "" {
		orderBy = "ListPrice desc"
	}

	listings, err := h.feed.FetchListings(c.Request.Context(), mls.Query{
		Filter:  mls.BuildFilter(criteria, time.Now()),
		OrderBy: orderBy,
		Top:     100,
		Select:  mls.SelectComps,
	})
	if err != nil {
		h.upstreamError(c, err, "Failed to fetch comps")
		return
	}

	c.JSON(http.StatusOK, gin.H{"comps": listings})
}

type nearbyComp struct {
	models.ListingRecord
	Distance float64 `json:"distance"`
}

// NearbyComps resolves the subject property, fetches candidates, and ranks
// them by great-circle distance.
func (h *Handler) NearbyComps(c *gin.Context) {
	var criteria models.FilterCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		h.requestLogger(c).WithError(err).Error("Failed to parse nearby request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	if criteria.Radius == 0 {
		criteria.Radius = 10
	}
	if criteria.DaysSold == 0 {
		criteria.DaysSold = 365
	}
	if criteria.Top == 0 {
		criteria.Top = 10
	}
	if criteria.PropertyType == "" {
		criteria.PropertyType = "Residential"
	}

	subjectRecord, coords, err := h.resolver.Resolve(c.Request.Context(), subject.Input{
		Address: criteria.Address,
		Lat:     criteria.Lat,
		Lng:     criteria.Lng,
	})
	if err != nil {
		h.requestLogger(c).WithError(err).Error("Subject resolution failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing coordinates"})
		return
	}

	listings, err := h.feed.FetchListings(c.Request.Context(), mls.Query{
		Filter:  mls.BuildFilter(criteria, time.Now()),
		OrderBy: "CloseDate desc",
		Top:     mls.ClampTop(criteria.Top),
		Select:  mls.SelectNearby,
	})
	if err != nil {
		h.upstreamError(c, err, "Failed to fetch nearby comps")
		return
	}

	ranked := geo.RankByDistance(coords, listings, criteria.Radius, criteria.Top)

	if c.Query("format") == "geojson" {
		c.JSON(http.StatusOK, geo.FeatureCollection(coords, ranked))
		return
	}

	nearby := make([]nearbyComp, len(ranked))
	for i, r := range ranked {
		nearby[i] = nearbyComp{ListingRecord: r.ListingRecord, Distance: r.RoundedDistance()}
	}

	c.JSON(http.StatusOK, gin.H{
		"subjectData": subjectRecord,
		"nearbyData":  nearby,
	})
}

// fetchNorthCarolina pulls the last 24 hours of active NC listings and
// attaches media. Media failures degrade to an empty image list.
func (h *Handler) fetchNorthCarolina(ctx context.Context, log *logrus.Entry) ([]models.ListingRecord, error) {
	cutoff := time.Now().UTC().Add(-24 * time.Hour).Format("2006-01-02T15:04:05Z")

	filter := strings.Join([]string{
		"ModificationTimestamp ge " + cutoff,
		"StateOrProvince eq 'NC'",
		"MlsStatus eq 'active'",
	}, " and ")

	listings, err := h.feed.FetchListings(ctx, mls.Query{
		Filter:  filter,
		OrderBy: "ModificationTimestamp desc",
		Top:     5,
		Select:  mls.SelectSyndication,
	})
	if err != nil {
		return nil, err
	}

	for i := range listings {
		media := h.feed.FetchMedia(ctx, listings[i].ListingKey)
		if media.Err != nil {
			log.WithError(media.Err).WithField("listing_key", listings[i].ListingKey).Warn("Media degraded to empty")
		}
		listings[i].PropertyImages = media.URLs

		if listings[i].UnparsedAddress != "" {
			listings[i].Title = listings[i].UnparsedAddress + ", " + listings[i].City
		} else {
			listings[i].Title = "Listing " + listings[i].ListingKey
		}
	}

	return listings, nil
}

// NorthCarolinaListings serves the syndication feed as JSON.
func (h *Handler) NorthCarolinaListings(c *gin.Context) {
	listings, err := h.fetchNorthCarolina(c.Request.Context(), h.requestLogger(c))
	if err != nil {
		h.upstreamError(c, err, "Failed to fetch listings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// NorthCarolinaCSV serves the syndication feed as a Houzez-importable CSV.
func (h *Handler) NorthCarolinaCSV(c *gin.Context) {
	listings, err := h.fetchNorthCarolina(c.Request.Context(), h.requestLogger(c))
	if err != nil {
		h.requestLogger(c).WithError(err).Error("Failed to generate CSV")
		c.String(http.StatusInternalServerError, "Error generating CSV")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="north-carolina.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(format.ListingsCSV(listings)))
}

// NorthCarolinaXML serves the syndication feed as a Houzez-importable XML
// document.
func (h *Handler) NorthCarolinaXML(c *gin.Context) {
	listings, err := h.fetchNorthCarolina(c.Request.Context(), h.requestLogger(c))
	if err != nil {
		h.requestLogger(c).WithError(err).Error("Failed to generate XML")
		c.Data(http.StatusInternalServerError, "application/xml; charset=utf-8", []byte(format.ErrorXML("Failed to build XML")))
		return
	}

	c.Header("Cache-Control", "s-maxage=60, stale-while-revalidate=120")
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(format.ListingsXML(listings)))
}

type mapRequest struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// resolveMapCoords resolves coordinates for map requests: explicit lat/lng
// wins, otherwise the address is geocoded.
func (h *Handler) resolveMapCoords(ctx context.Context, req mapRequest) (models.Coordinate, error) {
	if req.Lat != nil && req.Lng != nil {
		return models.Coordinate{Lat: *req.Lat, Lng: *req.Lng}, nil
	}
	if req.Address == "" {
		return models.Coordinate{}, subject.ErrCoordinatesNotResolved
	}
	return h.geocoder.Geocode(ctx, req.Address)
}

// GetStaticMap returns a static-map image URL, or null when coordinates
// cannot be resolved.
func (h *Handler) GetStaticMap(c *gin.Context) {
	var req mapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"staticMapUrl": nil})
		return
	}

	coords, err := h.resolveMapCoords(c.Request.Context(), req)
	if err != nil {
		h.requestLogger(c).WithError(err).Warn("Static map coordinates unresolved")
		c.JSON(http.StatusOK, gin.H{"staticMapUrl": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"staticMapUrl": h.maps.StaticMapURL(coords)})
}

// GetStreetView returns a street-view image URL after the metadata
// pre-check, or null when unavailable.
func (h *Handler) GetStreetView(c *gin.Context) {
	var req mapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"streetViewUrl": nil})
		return
	}

	coords, err := h.resolveMapCoords(c.Request.Context(), req)
	if err != nil {
		h.requestLogger(c).WithError(err).Warn("Street view coordinates unresolved")
		c.JSON(http.StatusOK, gin.H{"streetViewUrl": nil})
		return
	}

	url, err := h.maps.StreetViewURL(c.Request.Context(), coords)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"streetViewUrl": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"streetViewUrl": url})
}

// ProxyStreetView streams the street-view JPEG through the server so the
// API key stays hidden from the caller.
func (h *Handler) ProxyStreetView(c *gin.Context) {
	address := c.Query("address")
	latStr := c.Query("lat")
	lngStr := c.Query("lng")

	if address == "" && (latStr == "" || lngStr == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing address and lat/lng both"})
		return
	}

	req := mapRequest{Address: address}
	if latStr != "" && lngStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr == nil && lngErr == nil {
			req.Lat = &lat
			req.Lng = &lng
		}
	}

	coords, err := h.resolveMapCoords(c.Request.Context(), req)
	if err != nil {
		h.requestLogger(c).WithError(err).Error("Street view proxy coordinates unresolved")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not resolve coordinates"})
		return
	}

	image, err := h.maps.ProxyStreetView(c.Request.Context(), coords)
	if err != nil {
		if errors.Is(err, maps.ErrNoStreetView) {
			c.JSON(http.StatusNotFound, gin.H{"streetViewAvailable": false})
			return
		}
		h.requestLogger(c).WithError(err).Error("Street view proxy failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch street view"})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/jpeg", image)
}
