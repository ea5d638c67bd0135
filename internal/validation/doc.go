// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

// Package validation wraps go-playground/validator with a shared validator
// instance and readable error messages.
//
// Configuration structs and Jellyfin query-parameter structs are validated
// with struct tags. Two custom tags are registered:
//
//   - sort_orders: a comma list of "Ascending"/"Descending"
//   - http_url: an absolute http or https URL with a host
//
// Example:
//
//	type ItemsQuery struct {
//	    Limit     int    `validate:"gte=0,lte=500"`
//	    SortOrder string `validate:"sort_orders"`
//	}
//
//	if err := validation.ValidateStruct(&q); err != nil {
//	    // err.Error() joins the field messages
//	}
package validation
