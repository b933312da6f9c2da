// Package resolver turns a web page URL into the playable sources it embeds.
//
// PageResolver fetches the page with the shared transfer client and scans the
// static HTML with goquery: video and source tags, Open Graph video tags,
// same-origin iframes one level deep, and media URLs that appear inside
// inline scripts. Ad and segment URLs are dropped before the result is
// returned. Pages that only reveal their stream after running script are out
// of reach and resolve to services.ErrNoSources.
package resolver
