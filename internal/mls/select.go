package mls

import "strings"

// Field-selection profiles. The feed bills by payload, so each use case
// requests only the columns it renders.

// SelectComps is the full comparable-search view.
var SelectComps = []string{
	"ListingKey", "UnparsedAddress", "City", "StateOrProvince", "PostalCode",
	"ListPrice", "ClosePrice", "OnMarketDate", "CloseDate",
	"BedroomsTotal", "BathroomsFull", "LivingArea", "BuildingAreaTotal",
	"YearBuilt", "LotSizeAcres", "LotSizeSquareFeet",
	"PropertySubType", "PropertyType", "ArchitecturalStyle", "Stories",
	"SubdivisionName", "PoolFeatures", "Heating", "Cooling", "Sewer", "WaterSource",
	"PropertyCondition", "Fencing", "Flooring", "InteriorFeatures", "ExteriorFeatures",
	"ParkingFeatures", "GarageSpaces", "FireplacesTotal", "PublicRemarks",
	"StandardStatus", "MlsStatus", "DaysOnMarket", "VirtualTourURLUnbranded",
	"ListOfficeName", "ListAgentFullName", "Latitude", "Longitude",
}

// SelectNearby is the compact view used by the geo-ranked nearby search.
var SelectNearby = []string{
	"ListingKey", "UnparsedAddress", "City", "StateOrProvince", "PostalCode",
	"ListPrice", "ClosePrice", "CloseDate",
	"BedroomsTotal", "BathroomsFull", "LivingArea",
	"YearBuilt", "LotSizeSquareFeet",
	"PropertySubType", "PropertyType",
	"SubdivisionName", "MlsStatus", "Latitude", "Longitude",
}

// SelectStats is the minimal view the statistics pipeline needs.
var SelectStats = []string{
	"ListingKey", "UnparsedAddress", "StateOrProvince",
	"ListPrice", "ClosePrice", "CloseDate",
	"BedroomsTotal", "BathroomsFull", "LivingArea", "YearBuilt",
}

// SelectSyndication is the full view for the North Carolina importer feed.
var SelectSyndication = []string{
	"ListingKey", "UnparsedAddress", "City", "StateOrProvince", "PostalCode",
	"ListPrice", "ClosePrice", "OnMarketDate", "CloseDate",
	"BedroomsTotal", "BathroomsFull", "BathroomsHalf", "BathroomsTotalInteger",
	"LivingArea", "LotSizeSquareFeet", "YearBuilt",
	"PropertySubType", "PropertyType", "SubdivisionName",
	"PropertyCondition", "ParkingFeatures", "GarageSpaces",
	"MlsStatus", "Latitude", "Longitude",
	"PublicRemarks", "VirtualTourURLUnbranded",
	"ListAgentFullName", "ListAgentEmail", "ListOfficeName",
	"ModificationTimestamp",
}

func joinSelect(fields []string) string {
	return strings.Join(fields, ",")
}
