package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"comphub/server/internal/models"
)

// ErrNoStreetView means the metadata pre-check reported no imagery for the
// location.
var ErrNoStreetView = errors.New("street view not available")

const (
	staticMapEndpoint  = "https://maps.googleapis.com/maps/api/staticmap"
	streetViewEndpoint = "https://maps.googleapis.com/maps/api/streetview"
)

// Service builds Google Maps imagery URLs and proxies image bytes so the API
// key never reaches the caller.
type Service struct {
	apiKey string
	client *http.Client
	logger *logrus.Logger

	// Overridable for tests
	staticBase     string
	streetViewBase string
}

func NewService(apiKey string, timeout time.Duration, logger *logrus.Logger) *Service {
	return &Service{
		apiKey:         apiKey,
		client:         &http.Client{Timeout: timeout},
		logger:         logger,
		staticBase:     staticMapEndpoint,
		streetViewBase: streetViewEndpoint,
	}
}

// StaticMapURL returns a direct static-map image URL centered on the
// coordinate with a single red marker.
func (s *Service) StaticMapURL(c models.Coordinate) string {
	return fmt.Sprintf(
		"%s?center=%v,%v&zoom=15&size=600x300&markers=color:red|label:A|%v,%v&key=%s",
		s.staticBase, c.Lat, c.Lng, c.Lat, c.Lng, s.apiKey,
	)
}

// StreetViewURL returns a direct street-view image URL after confirming
// imagery exists via the metadata pre-check.
func (s *Service) StreetViewURL(ctx context.Context, c models.Coordinate) (string, error) {
	if err := s.checkMetadata(ctx, c); err != nil {
		return "", err
	}
	return s.imageURL(c), nil
}

// ProxyStreetView fetches the street-view image server-side and returns the
// raw JPEG bytes.
func (s *Service) ProxyStreetView(ctx context.Context, c models.Coordinate) ([]byte, error) {
	if err := s.checkMetadata(ctx, c); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", s.imageURL(c), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("street view request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("street view returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (s *Service) imageURL(c models.Coordinate) string {
	return fmt.Sprintf("%s?location=%v,%v&size=600x300&key=%s", s.streetViewBase, c.Lat, c.Lng, s.apiKey)
}

func (s *Service) checkMetadata(ctx context.Context, c models.Coordinate) error {
	metadataURL := fmt.Sprintf("%s/metadata?location=%v,%v&key=%s", s.streetViewBase, c.Lat, c.Lng, s.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", metadataURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("street view metadata request failed: %v", err)
	}
	defer resp.Body.Close()

	var metadata struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return fmt.Errorf("failed to parse metadata response: %v", err)
	}

	if metadata.Status != "OK" {
		s.logger.WithFields(logrus.Fields{
			"lat":    c.Lat,
			"lng":    c.Lng,
			"status": metadata.Status,
		}).Warn("No street view imagery for location")
		return ErrNoStreetView
	}

	return nil
}
