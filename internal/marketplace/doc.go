// Package marketplace implements the marketplace side of catalog
// synchronisation.
//
// # Architecture
//
// The package provides two driven adapters:
//
//   - Client: the opaque request function ([driven.MarketplaceClient]).
//     It handles authentication, JSON encoding and rate limiting.
//   - Gateway: the typed endpoint view ([driven.CatalogGateway]) the
//     engine uses. It builds request payloads and decodes responses.
//
// # Authentication
//
// Two methods are supported:
//
//   - OAuth2 client credentials: ClientID and ClientSecret are exchanged at
//     TokenURL (default BaseURL + "/v3/token"); tokens are refreshed by
//     golang.org/x/oauth2.
//   - API key: sent as a bearer token.
//
// # Pagination
//
// The item listing is offset-paginated (limit/offset). Bulk inventory is
// cursor-paginated: each page carries meta.nextCursor, absent on the last
// page. Pagination loops live in the core fetcher; the gateway only fetches
// single pages.
//
// # Response decoding
//
// Every decoder requires the envelope of its endpoint. Unknown shapes fail
// with domain.ErrUnrecognizedResponse instead of being treated as success;
// a feed submission is only accepted when it carries a feedId.
package marketplace
