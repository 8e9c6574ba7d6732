// Package remote implements a concrete client for the cloud object
// service's bearer-authenticated hypertext API (spec section 6). The sync
// engine depends only on the interfaces in internal/sync; this package
// supplies a real implementation of them so the repository is runnable
// end to end, the way the teacher's internal/graph package implements the
// Microsoft Graph API for onedrive-go.
package remote

import "time"

// Item is a normalized remote object — a file or folder under the sync
// root. Fields are decoded from the API's JSON shape; callers never see
// raw response bodies.
type Item struct {
	ID         string
	Name       string
	Size       int64
	IsFolder   bool
	ModifiedAt time.Time // parsed from the server's ISO-8601 timestamp
}

// Page is one page of a list_children response: items plus an opaque
// continuation token for the next page (empty when exhausted).
type Page struct {
	Items       []Item
	NextLink    string
	HasNextPage bool
}
