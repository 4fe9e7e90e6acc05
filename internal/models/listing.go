package models

// ListingRecord is one property as returned by the replication feed. Field
// names follow the RESO data dictionary so records pass through to downstream
// consumers without renaming. Numeric fields are pointers because the feed
// omits anything it does not know.
type ListingRecord struct {
	ListingKey              string   `json:"ListingKey"`
	UnparsedAddress         string   `json:"UnparsedAddress"`
	City                    string   `json:"City"`
	StateOrProvince         string   `json:"StateOrProvince"`
	PostalCode              string   `json:"PostalCode"`
	ListPrice               *float64 `json:"ListPrice"`
	ClosePrice              *float64 `json:"ClosePrice"`
	OnMarketDate            string   `json:"OnMarketDate,omitempty"`
	CloseDate               string   `json:"CloseDate,omitempty"`
	BedroomsTotal           *int     `json:"BedroomsTotal"`
	BathroomsFull           *int     `json:"BathroomsFull"`
	BathroomsHalf           *int     `json:"BathroomsHalf,omitempty"`
	BathroomsTotalInteger   *int     `json:"BathroomsTotalInteger,omitempty"`
	LivingArea              *float64 `json:"LivingArea"`
	LotSizeSquareFeet       *float64 `json:"LotSizeSquareFeet,omitempty"`
	YearBuilt               *int     `json:"YearBuilt"`
	PropertyType            string   `json:"PropertyType,omitempty"`
	PropertySubType         string   `json:"PropertySubType,omitempty"`
	SubdivisionName         string   `json:"SubdivisionName,omitempty"`
	MlsStatus               string   `json:"MlsStatus"`
	Latitude                *float64 `json:"Latitude"`
	Longitude               *float64 `json:"Longitude"`
	PublicRemarks           string   `json:"PublicRemarks,omitempty"`
	PropertyCondition       string   `json:"PropertyCondition,omitempty"`
	ParkingFeatures         string   `json:"ParkingFeatures,omitempty"`
	GarageSpaces            *float64 `json:"GarageSpaces,omitempty"`
	VirtualTourURLUnbranded string   `json:"VirtualTourURLUnbranded,omitempty"`
	ListOfficeName          string   `json:"ListOfficeName,omitempty"`
	ListAgentFullName       string   `json:"ListAgentFullName,omitempty"`
	ListAgentEmail          string   `json:"ListAgentEmail,omitempty"`
	ModificationTimestamp   string   `json:"ModificationTimestamp,omitempty"`

	// Populated server-side after the media fetch; never sent by the feed.
	PropertyImages []string `json:"propertyImages,omitempty"`
	Title          string   `json:"title,omitempty"`
}

// Coordinate is a validated lat/lng pair in floating-point degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Coords returns the record's coordinates, or false when either side is
// missing. Records without both are excluded from geo-ranked output.
func (r *ListingRecord) Coords() (Coordinate, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *r.Latitude, Lng: *r.Longitude}, true
}

// FilterCriteria is the ephemeral per-request input. Every bound is
// independently optional; nil means "no constraint". Exact-match fields and
// range fields for the same attribute are additive, matching upstream
// behavior.
type FilterCriteria struct {
	MinBeds  *int     `json:"min_beds"`
	MaxBeds  *int     `json:"max_beds"`
	MinBaths *int     `json:"min_baths"`
	MaxBaths *int     `json:"max_baths"`
	MinPrice *float64 `json:"min_price"`
	MaxPrice *float64 `json:"max_price"`
	MinSqft  *float64 `json:"min_sqft"`
	MaxSqft  *float64 `json:"max_sqft"`
	MinYear  *int     `json:"min_year"`
	MaxYear  *int     `json:"max_year"`

	// Exact matches
	Beds  *int     `json:"beds"`
	Baths *int     `json:"baths"`
	Sqft  *float64 `json:"sqft"`
	Year  *int     `json:"year"`

	Status       string `json:"status"`
	PostalCode   string `json:"postalCode"`
	State        string `json:"state"`
	PropertyType string `json:"propertyType"`

	DaysSold             int  `json:"days_sold"`
	IncludeActivePending bool `json:"includeActivePending"`

	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Radius  float64  `json:"radius"`
	Top     int      `json:"top"`
	OrderBy string   `json:"orderby"`
}

// Comp is the reshaped per-listing output of the comps pipeline.
type Comp struct {
	ListingKey   string   `json:"listingKey"`
	Address      string   `json:"address"`
	State        *string  `json:"state"`
	ListPrice    *float64 `json:"listPrice"`
	ClosePrice   *float64 `json:"closePrice"`
	CloseDate    string   `json:"closeDate"`
	Beds         *int     `json:"beds"`
	Baths        *int     `json:"baths"`
	Sqft         *float64 `json:"sqft"`
	YearBuilt    *int     `json:"yearBuilt"`
	PricePerSqft *float64 `json:"pricePerSqft"`
	ARV          *float64 `json:"arv"`
	IsFixer      bool     `json:"isFixer"`
	IsOutlier    bool     `json:"isOutlier"`
}

// CompStats holds the set-level price-per-sqft statistics for one response.
// Valid is false when too few values exist to classify (n < 4); the
// per-listing figures are still emitted in that case.
type CompStats struct {
	Median     float64 `json:"median"`
	Q1         float64 `json:"q1"`
	Q3         float64 `json:"q3"`
	IQR        float64 `json:"iqr"`
	LowerBound float64 `json:"lowerBound"`
	UpperBound float64 `json:"upperBound"`
	Count      int     `json:"count"`
	Valid      bool    `json:"valid"`
}

// MediaResult distinguishes "no images" from "fetch failed". Err is logged
// for diagnostics but never surfaces to the end user; URLs is empty either
// way.
type MediaResult struct {
	URLs []string
	Err  error
}
