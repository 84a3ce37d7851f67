// Package acl is the anti-corruption layer between the marketplace auth API
// and the session domain.
//
// The backend's renewal DTOs never leave this package: [SessionAPI] sends the
// anonymous renewal request through a raw [clients.Issuer], decodes the
// response, and translates it to [domain.CredentialUpdate]. Failures are
// returned untouched so the resilient client's classifier sees the original
// [clients.ResponseError] or transport error.
//
// Renewal goes through the issuer, never through [clients.Client], so a
// rejected renewal cannot recurse into another renewal.
//
// # Token claims
//
// When the backend omits the user id or the issue time, they are read from
// the access token's "sub" and "iat" claims. The token is parsed without
// signature verification; these values are display hints only.
package acl
