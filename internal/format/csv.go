package format

import (
	"strconv"
	"strings"

	"comphub/server/internal/models"
)

// csvHeaders is the fixed column set the Houzez importer maps from.
var csvHeaders = []string{
	"ListingKey", "Post Title", "Post Content", "Post Excerpt",
	"ListPrice", "BedroomsTotal", "BathroomsTotalInteger", "LivingArea",
	"LotSizeSquareFeet", "City", "StateOrProvince", "PostalCode",
	"Latitude", "Longitude", "PropertyType", "PropertySubType",
	"MlsStatus", "OnMarketDate", "ListOfficeName", "ListAgentFullName",
	"ListAgentEmail", "PublicRemarks", "Images",
}

// EscapeCSV quotes a value when it contains a comma, quote, or newline,
// doubling embedded quotes per RFC 4180.
func EscapeCSV(val string) string {
	if strings.ContainsAny(val, ",\"\n") {
		return `"` + strings.ReplaceAll(val, `"`, `""`) + `"`
	}
	return val
}

func floatField(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intField(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// ListingsCSV renders the syndication feed as CSV: fixed header row then one
// row per listing, rows joined with newlines.
func ListingsCSV(listings []models.ListingRecord) string {
	rows := []string{strings.Join(csvHeaders, ",")}

	for _, l := range listings {
		title := l.Title
		if title == "" {
			title = l.UnparsedAddress
		}

		baths := l.BathroomsTotalInteger
		if baths == nil {
			baths = l.BathroomsFull
		}

		fields := []string{
			l.ListingKey, title, l.PublicRemarks, l.PublicRemarks,
			floatField(l.ListPrice), intField(l.BedroomsTotal), intField(baths),
			floatField(l.LivingArea), floatField(l.LotSizeSquareFeet),
			l.City, l.StateOrProvince, l.PostalCode,
			floatField(l.Latitude), floatField(l.Longitude),
			l.PropertyType, l.PropertySubType, l.MlsStatus, l.OnMarketDate,
			l.ListOfficeName, l.ListAgentFullName, l.ListAgentEmail,
			l.PublicRemarks, strings.Join(l.PropertyImages, "|"),
		}

		escaped := make([]string, len(fields))
		for i, f := range fields {
			escaped[i] = EscapeCSV(f)
		}
		rows = append(rows, strings.Join(escaped, ","))
	}

	return strings.Join(rows, "\n")
}
