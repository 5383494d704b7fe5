// Package instagram knows the site's URL shapes and response records.
//
// It normalizes user-supplied targets into canonical URLs (ParseTarget),
// exposes read-only views over captured GraphQL payloads (Reel, MediaItem,
// HighlightSummary, UserProfile) and fetches CDN assets with the browser
// session's cookies and user agent (Client).
package instagram
