package format

import (
	"fmt"
	"strings"

	"comphub/server/internal/models"
)

// EscapeXML replaces the five XML special characters with their entities.
func EscapeXML(val string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(val)
}

func xmlElement(b *strings.Builder, tag, value string) {
	fmt.Fprintf(b, "    <%s>%s</%s>\n", tag, EscapeXML(value), tag)
}

func listingXML(b *strings.Builder, l models.ListingRecord) {
	title := l.Title
	if title == "" {
		title = l.UnparsedAddress
	}

	baths := l.BathroomsTotalInteger
	if baths == nil {
		baths = l.BathroomsFull
	}

	b.WriteString("  <property>\n")
	xmlElement(b, "ListingKey", l.ListingKey)
	xmlElement(b, "content", title)
	xmlElement(b, "title", title)
	xmlElement(b, "excerpt", title)
	xmlElement(b, "ListPrice", floatField(l.ListPrice))
	xmlElement(b, "ClosePrice", floatField(l.ClosePrice))
	xmlElement(b, "BedroomsTotal", intField(l.BedroomsTotal))
	xmlElement(b, "BathroomsTotalInteger", intField(baths))
	xmlElement(b, "LivingArea", floatField(l.LivingArea))
	xmlElement(b, "LotSizeSquareFeet", floatField(l.LotSizeSquareFeet))
	xmlElement(b, "City", l.City)
	xmlElement(b, "StateOrProvince", l.StateOrProvince)
	xmlElement(b, "PostalCode", l.PostalCode)
	xmlElement(b, "Latitude", floatField(l.Latitude))
	xmlElement(b, "Longitude", floatField(l.Longitude))
	xmlElement(b, "PropertyType", l.PropertyType)
	xmlElement(b, "PropertySubType", l.PropertySubType)
	xmlElement(b, "MlsStatus", l.MlsStatus)
	xmlElement(b, "OnMarketDate", l.OnMarketDate)
	xmlElement(b, "ModificationTimestamp", l.ModificationTimestamp)
	xmlElement(b, "ListOfficeName", l.ListOfficeName)
	xmlElement(b, "ListAgentFullName", l.ListAgentFullName)
	xmlElement(b, "ListAgentEmail", l.ListAgentEmail)
	xmlElement(b, "PublicRemarks", l.PublicRemarks)

	for _, img := range l.PropertyImages {
		xmlElement(b, "image", img)
	}

	b.WriteString("  </property>\n")
}

// ListingsXML renders the syndication feed as a Houzez-friendly XML
// document.
func ListingsXML(listings []models.ListingRecord) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<properties>\n")
	for _, l := range listings {
		listingXML(&b, l)
	}
	b.WriteString("</properties>\n")
	return b.String()
}

// ErrorXML wraps an error message for the XML feed's failure path.
func ErrorXML(message string) string {
	return fmt.Sprintf("<?xml version=\"1.0\" encoding=\"UTF-8\"?><error>%s</error>", EscapeXML(message))
}
