// Package bundle requests one zip archive holding several converted results.
//
// The Requester validates the whole selection locally before any network
// call: it must be non-empty and every id must name an item that is done.
// The archive returned by the service is checked to be a readable zip and
// then handed to a Delivery exactly once. Queue records are never modified.
package bundle
