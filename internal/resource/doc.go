// Package resource keeps the dashboard's view of server-side collections
// in sync with the REST API.
//
// A Resource holds the last successfully fetched value of one collection
// together with its loading and error state. It fetches once when first
// activated and again on every explicit Refresh. There is no polling:
// the dashboard refreshes after each mutation it performs, and on demand.
//
// Every fetch is tagged with a sequence number. A result that arrives
// after a newer one has been applied is discarded, so overlapping
// refreshes always settle on the most recent response.
//
// Devices, Plugins and Protocols wrap the collections the dashboard uses
// and pair each mutation with the refresh that follows it.
package resource
