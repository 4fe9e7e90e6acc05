package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"comphub/server/internal/models"
)

// ErrAddressNotFound means the geocoding service returned no results for the
// address. Flows that require coordinates treat this as a hard failure.
var ErrAddressNotFound = errors.New("address not found")

type Geocoder struct {
	apiKey    string
	logger    *logrus.Logger
	cacheDir  string
	cache     map[string]models.Coordinate
	cacheLock sync.RWMutex
	client    *http.Client

	// Overridable for tests
	endpoint string
}

func NewGeocoder(apiKey string, logger *logrus.Logger, cacheDir string) *Geocoder {
	os.MkdirAll(cacheDir, 0755)

	g := &Geocoder{
		apiKey:   apiKey,
		logger:   logger,
		cacheDir: cacheDir,
		cache:    make(map[string]models.Coordinate),
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: "https://maps.googleapis.com/maps/api/geocode/json",
	}

	g.loadCache()

	return g
}

func (g *Geocoder) loadCache() {
	cacheFile := filepath.Join(g.cacheDir, "geocode_cache.json")
	data, err := os.ReadFile(cacheFile)
	if err != nil {
		return
	}

	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

func (g *Geocoder) saveCache() {
	g.cacheLock.RLock()
	defer g.cacheLock.RUnlock()

	cacheFile := filepath.Join(g.cacheDir, "geocode_cache.json")
	data, err := json.Marshal(g.cache)
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
	}
}

type geocodeResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

// Geocode resolves a free-text address to coordinates. Absence of a first
// result is a hard failure for the call.
func (g *Geocoder) Geocode(ctx context.Context, address string) (models.Coordinate, error) {
	g.cacheLock.RLock()
	if coords, ok := g.cache[address]; ok {
		g.cacheLock.RUnlock()
		g.logger.WithFields(logrus.Fields{
			"address":   address,
			"latitude":  coords.Lat,
			"longitude": coords.Lng,
			"source":    "cache",
		}).Info("Found coordinates in cache")
		return coords, nil
	}
	g.cacheLock.RUnlock()

	params := url.Values{
		"address": []string{address},
		"key":     []string{g.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("address", address).Error("Geocoding request failed")
		return models.Coordinate{}, fmt.Errorf("geocoding request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("failed to read response: %v", err)
	}

	var result geocodeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		g.logger.WithError(err).WithField("address", address).Error("Failed to parse geocoding response")
		return models.Coordinate{}, fmt.Errorf("failed to parse response: %v", err)
	}

	if len(result.Results) == 0 {
		g.logger.WithField("address", address).Warn("No geocoding results")
		return models.Coordinate{}, ErrAddressNotFound
	}

	loc := result.Results[0].Geometry.Location
	coords := models.Coordinate{Lat: loc.Lat, Lng: loc.Lng}

	g.logger.WithFields(logrus.Fields{
		"address":   address,
		"latitude":  coords.Lat,
		"longitude": coords.Lng,
		"source":    "google",
	}).Info("Successfully geocoded address")

	g.cacheLock.Lock()
	g.cache[address] = coords
	g.cacheLock.Unlock()

	go g.saveCache()

	return coords, nil
}
