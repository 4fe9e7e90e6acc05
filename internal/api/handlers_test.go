package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comphub/server/config"
	"comphub/server/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupRouter(t *testing.T, upstream http.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := httptest.NewServer(upstream)
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		GoogleMapsKey:   "test-key",
		HTTPTimeout:     5,
		GeocodeCacheDir: t.TempDir(),
	}
	cfg.Replication.BaseURL = ts.URL
	cfg.Replication.AccessToken = "test-token"

	router := gin.New()
	router.HandleMethodNotAllowed = true
	SetupRoutes(router, cfg, quietLogger())
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func listingsJSON(listings []models.ListingRecord) string {
	payload, _ := json.Marshal(map[string]interface{}{"value": listings})
	return string(payload)
}

func TestGetComps_Pipeline(t *testing.T) {
	var capturedFilter string

	listings := []models.ListingRecord{
		{ListingKey: "A", UnparsedAddress: "1 Elm Street", StateOrProvince: "NC", ClosePrice: floatPtr(100000), LivingArea: floatPtr(1000)}, // 100/sqft
		{ListingKey: "B", UnparsedAddress: "2 Elm Street", ClosePrice: floatPtr(220000), LivingArea: floatPtr(1000)},                        // 220/sqft
		{ListingKey: "C", UnparsedAddress: "3 Elm Street", ClosePrice: floatPtr(230000), LivingArea: floatPtr(1000)},                        // 230/sqft
		{ListingKey: "D", UnparsedAddress: "4 Elm Street", ClosePrice: floatPtr(240000), LivingArea: floatPtr(1000)},                        // 240/sqft
		{ListingKey: "E", UnparsedAddress: "5 Elm Street", ClosePrice: floatPtr(250000)},                                                   // no sqft
	}

	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		capturedFilter = r.URL.Query().Get("$filter")
		fmt.Fprint(w, listingsJSON(listings))
	})

	w := doJSON(t, router, "POST", "/api/comps", `{"days_sold": 365}`)
	require.Equal(t, http.StatusOK, w.Code)

	// Date-only upstream filter; bounds apply locally after the fetch
	expectedCutoff := time.Now().UTC().AddDate(0, 0, -365).Format("2006-01-02")
	assert.Equal(t, "CloseDate ge "+expectedCutoff, capturedFilter)

	var resp struct {
		Comps []models.Comp `json:"comps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Comps, 5)

	// Sorted ppsf values are [100,220,230,240]: median 230, Q1 220, Q3 240,
	// IQR 20, bounds [190, 270]. A is both an outlier and a fixer.
	byKey := map[string]models.Comp{}
	for _, c := range resp.Comps {
		byKey[c.ListingKey] = c
	}

	a := byKey["A"]
	require.NotNil(t, a.PricePerSqft)
	assert.Equal(t, 100.0, *a.PricePerSqft)
	assert.True(t, a.IsOutlier)
	assert.True(t, a.IsFixer)
	require.NotNil(t, a.ARV)
	assert.Equal(t, 110000.0, *a.ARV)

	b := byKey["B"]
	assert.False(t, b.IsOutlier)
	assert.False(t, b.IsFixer)

	// Missing living area: null ppsf, never classified
	e := byKey["E"]
	assert.Nil(t, e.PricePerSqft)
	assert.False(t, e.IsOutlier)
	assert.False(t, e.IsFixer)
	require.NotNil(t, e.ARV)
	assert.Equal(t, 275000.0, *e.ARV)
}

func TestGetComps_StateClause(t *testing.T) {
	var capturedFilter string
	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		capturedFilter = r.URL.Query().Get("$filter")
		fmt.Fprint(w, listingsJSON(nil))
	})

	w := doJSON(t, router, "POST", "/api/comps", `{"state": "NC"}`)
	require.Equal(t, http.StatusOK, w.Code)

	// days_sold defaults to 180
	expectedCutoff := time.Now().UTC().AddDate(0, 0, -180).Format("2006-01-02")
	assert.Equal(t, "CloseDate ge "+expectedCutoff+" and StateOrProvince eq 'NC'", capturedFilter)
}

func TestGetComps_LocalBoundFiltering(t *testing.T) {
	three := 3
	five := 5
	listings := []models.ListingRecord{
		{ListingKey: "small", BedroomsTotal: &three, ClosePrice: floatPtr(100000), LivingArea: floatPtr(1000)},
		{ListingKey: "big", BedroomsTotal: &five, ClosePrice: floatPtr(200000), LivingArea: floatPtr(2000)},
		{ListingKey: "unknown", ClosePrice: floatPtr(150000), LivingArea: floatPtr(1500)},
	}

	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingsJSON(listings))
	})

	w := doJSON(t, router, "POST", "/api/comps", `{"min_beds": 4}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Comps []models.Comp `json:"comps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Comps, 1)
	assert.Equal(t, "big", resp.Comps[0].ListingKey)
}

func TestGetComps_MethodNotAllowed(t *testing.T) {
	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("GET", "/api/comps", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGetComps_UpstreamErrorDetail(t *testing.T) {
	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error": "token expired"}`)
	})

	w := doJSON(t, router, "POST", "/api/comps", `{}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to fetch comps", resp["error"])
	assert.Contains(t, resp["detail"], "token expired")
}

func TestSearchComps(t *testing.T) {
	var capturedFilter, capturedOrderBy, capturedTop string

	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		capturedFilter = r.URL.Query().Get("$filter")
		capturedOrderBy = r.URL.Query().Get("$orderby")
		capturedTop = r.URL.Query().Get("$top")
		fmt.Fprint(w, listingsJSON([]models.ListingRecord{{ListingKey: "X"}}))
	})

	w := doJSON(t, router, "POST", "/api/comps/search", `{"min_beds": 3, "postalCode": "27601", "state": "NC", "status": "Active"}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, capturedFilter, "MlsStatus eq 'Active'")
	assert.Contains(t, capturedFilter, "BedroomsTotal ge 3")
	assert.Contains(t, capturedFilter, "PostalCode eq '27601'")
	assert.NotContains(t, capturedFilter, "StateOrProvince")
	assert.NotContains(t, capturedFilter, "CloseDate")
	assert.Equal(t, "ListPrice desc", capturedOrderBy)
	assert.Equal(t, "100", capturedTop)
}

func TestNearbyComps(t *testing.T) {
	var capturedTop string

	listings := []models.ListingRecord{
		{ListingKey: "far", Latitude: floatPtr(36.5), Longitude: floatPtr(-79.5)},
		{ListingKey: "near", UnparsedAddress: "10 Close Court", Latitude: floatPtr(35.78), Longitude: floatPtr(-78.64)},
		{ListingKey: "mid", Latitude: floatPtr(35.85), Longitude: floatPtr(-78.7)},
		{ListingKey: "nocoords"},
	}

	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		capturedTop = r.URL.Query().Get("$top")
		fmt.Fprint(w, listingsJSON(listings))
	})

	w := doJSON(t, router, "POST", "/api/comps/nearby", `{"lat": 35.7796, "lng": -78.6382, "radius": 10}`)
	require.Equal(t, http.StatusOK, w.Code)

	// Small default top widened upstream for geo attrition
	assert.Equal(t, "120", capturedTop)

	var resp struct {
		SubjectData *models.ListingRecord `json:"subjectData"`
		NearbyData  []struct {
			models.ListingRecord
			Distance float64 `json:"distance"`
		} `json:"nearbyData"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.NearbyData, 2)
	assert.Equal(t, "near", resp.NearbyData[0].ListingKey)
	assert.Equal(t, "mid", resp.NearbyData[1].ListingKey)
	assert.LessOrEqual(t, resp.NearbyData[0].Distance, resp.NearbyData[1].Distance)
	assert.LessOrEqual(t, resp.NearbyData[1].Distance, 10.0)
}

func TestNearbyComps_MissingCoordinates(t *testing.T) {
	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingsJSON(nil))
	})

	w := doJSON(t, router, "POST", "/api/comps/nearby", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or missing coordinates")
}

func TestNearbyComps_GeoJSON(t *testing.T) {
	listings := []models.ListingRecord{
		{ListingKey: "near", Latitude: floatPtr(35.78), Longitude: floatPtr(-78.64)},
	}

	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingsJSON(listings))
	})

	w := doJSON(t, router, "POST", "/api/comps/nearby?format=geojson", `{"lat": 35.7796, "lng": -78.6382}`)
	require.Equal(t, http.StatusOK, w.Code)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "subject", fc.Features[0].Properties["role"])
	assert.Equal(t, "near", fc.Features[1].Properties["listingKey"])
}

func TestNorthCarolinaListings(t *testing.T) {
	var capturedFilter string

	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/Media") {
			assert.Equal(t, "/Property('K1')/Media", r.URL.Path)
			fmt.Fprint(w, `{"value": [{"MediaURL": "https://img/1.jpg"}]}`)
			return
		}
		capturedFilter = r.URL.Query().Get("$filter")
		fmt.Fprint(w, listingsJSON([]models.ListingRecord{
			{ListingKey: "K1", UnparsedAddress: "1 Pine Street", City: "Raleigh"},
		}))
	})

	w := doJSON(t, router, "GET", "/api/north-carolina", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, capturedFilter, "StateOrProvince eq 'NC'")
	assert.Contains(t, capturedFilter, "MlsStatus eq 'active'")
	assert.Contains(t, capturedFilter, "ModificationTimestamp ge ")

	var resp struct {
		Listings []models.ListingRecord `json:"listings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Listings, 1)
	assert.Equal(t, "1 Pine Street, Raleigh", resp.Listings[0].Title)
	assert.Equal(t, []string{"https://img/1.jpg"}, resp.Listings[0].PropertyImages)
}

func TestNorthCarolinaListings_MediaDegradesToEmpty(t *testing.T) {
	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/Media") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, listingsJSON([]models.ListingRecord{{ListingKey: "K1"}}))
	})

	w := doJSON(t, router, "GET", "/api/north-carolina", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Listings []models.ListingRecord `json:"listings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Listings, 1)
	assert.Empty(t, resp.Listings[0].PropertyImages)
	assert.Equal(t, "Listing K1", resp.Listings[0].Title)
}

func TestNorthCarolinaCSV(t *testing.T) {
	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/Media") {
			fmt.Fprint(w, `{"value": []}`)
			return
		}
		fmt.Fprint(w, listingsJSON([]models.ListingRecord{
			{ListingKey: "K1", UnparsedAddress: "1 Pine Street", City: "Raleigh", PublicRemarks: `Quiet, "wooded" lot`},
		}))
	})

	w := doJSON(t, router, "GET", "/api/north-carolina.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "north-carolina.csv")

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "ListingKey,Post Title"))
	assert.Contains(t, body, `"Quiet, ""wooded"" lot"`)
}

func TestNorthCarolinaXML(t *testing.T) {
	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/Media") {
			fmt.Fprint(w, `{"value": [{"MediaURL": "https://img/1.jpg"}]}`)
			return
		}
		fmt.Fprint(w, listingsJSON([]models.ListingRecord{
			{ListingKey: "K1", UnparsedAddress: "1 Pine Street", City: "Raleigh"},
		}))
	})

	w := doJSON(t, router, "GET", "/api/north-carolina.xml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")

	body := w.Body.String()
	assert.Contains(t, body, "<ListingKey>K1</ListingKey>")
	assert.Contains(t, body, "<title>1 Pine Street, Raleigh</title>")
	assert.Contains(t, body, "<image>https://img/1.jpg</image>")
}

func TestGetStaticMap_ExplicitCoordinates(t *testing.T) {
	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	w := doJSON(t, router, "POST", "/api/map/static", `{"lat": 35.78, "lng": -78.64}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		StaticMapURL *string `json:"staticMapUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.StaticMapURL)
	assert.Contains(t, *resp.StaticMapURL, "center=35.78,-78.64")
	assert.Contains(t, *resp.StaticMapURL, "key=test-key")
}

func TestGetStaticMap_Unresolvable(t *testing.T) {
	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	w := doJSON(t, router, "POST", "/api/map/static", `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		StaticMapURL *string `json:"staticMapUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.StaticMapURL)
}

func TestProxyStreetView_MissingInput(t *testing.T) {
	router := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	w := doJSON(t, router, "GET", "/api/map/street-view/proxy", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing address")
}
