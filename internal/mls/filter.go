package mls

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"comphub/server/internal/models"
)

// EscapeODataString doubles single quotes so caller-supplied strings cannot
// break out of the quoted literal in the $filter expression.
func EscapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BuildFilter translates criteria into an OData $filter expression. Clauses
// are joined with " and "; ordering is not significant. An empty criteria set
// yields a status-only filter.
func BuildFilter(c models.FilterCriteria, now time.Time) string {
	var filters []string

	// Status logic: default to Closed unless the caller overrides or asks
	// for Active/Pending inclusion, which becomes a disjunction.
	switch {
	case c.IncludeActivePending:
		filters = append(filters, "(MlsStatus eq 'Closed' or MlsStatus eq 'Active' or MlsStatus eq 'Pending')")
	case c.Status != "":
		filters = append(filters, fmt.Sprintf("MlsStatus eq '%s'", EscapeODataString(c.Status)))
	default:
		filters = append(filters, "MlsStatus eq 'Closed'")
	}

	// Date cutoff only applies when closed listings are in scope.
	closedOnly := !c.IncludeActivePending && (c.Status == "" || c.Status == "Closed")
	if c.DaysSold > 0 && closedOnly {
		cutoff := now.UTC().AddDate(0, 0, -c.DaysSold).Format("2006-01-02")
		filters = append(filters, fmt.Sprintf("CloseDate ge %s", cutoff))
	}

	// Postal code takes precedence over state when both are supplied.
	if c.PostalCode != "" {
		filters = append(filters, fmt.Sprintf("PostalCode eq '%s'", EscapeODataString(c.PostalCode)))
	} else if c.State != "" {
		filters = append(filters, fmt.Sprintf("StateOrProvince eq '%s'", EscapeODataString(c.State)))
	}

	if c.MinBeds != nil {
		filters = append(filters, fmt.Sprintf("BedroomsTotal ge %d", *c.MinBeds))
	}
	if c.MaxBeds != nil {
		filters = append(filters, fmt.Sprintf("BedroomsTotal le %d", *c.MaxBeds))
	}
	if c.MinBaths != nil {
		filters = append(filters, fmt.Sprintf("BathroomsFull ge %d", *c.MinBaths))
	}
	if c.MaxBaths != nil {
		filters = append(filters, fmt.Sprintf("BathroomsFull le %d", *c.MaxBaths))
	}
	if c.MinPrice != nil {
		filters = append(filters, fmt.Sprintf("ListPrice ge %s", formatPrice(*c.MinPrice)))
	}
	if c.MaxPrice != nil {
		filters = append(filters, fmt.Sprintf("ListPrice le %s", formatPrice(*c.MaxPrice)))
	}
	if c.MinSqft != nil {
		filters = append(filters, fmt.Sprintf("LivingArea ge %s", formatPrice(*c.MinSqft)))
	}
	if c.MaxSqft != nil {
		filters = append(filters, fmt.Sprintf("LivingArea le %s", formatPrice(*c.MaxSqft)))
	}
	if c.MinYear != nil {
		filters = append(filters, fmt.Sprintf("YearBuilt ge %d", *c.MinYear))
	}
	if c.MaxYear != nil {
		filters = append(filters, fmt.Sprintf("YearBuilt le %d", *c.MaxYear))
	}

	// Exact matches are additive with the ranges above; upstream applies
	// both when both are supplied.
	if c.Beds != nil {
		filters = append(filters, fmt.Sprintf("BedroomsTotal eq %d", *c.Beds))
	}
	if c.Baths != nil {
		filters = append(filters, fmt.Sprintf("BathroomsFull eq %d", *c.Baths))
	}
	if c.Sqft != nil {
		filters = append(filters, fmt.Sprintf("LivingArea eq %s", formatPrice(*c.Sqft)))
	}
	if c.Year != nil {
		filters = append(filters, fmt.Sprintf("YearBuilt eq %d", *c.Year))
	}

	if c.PropertyType != "" {
		filters = append(filters, fmt.Sprintf("PropertyType eq '%s'", EscapeODataString(c.PropertyType)))
	}

	return strings.Join(filters, " and ")
}
