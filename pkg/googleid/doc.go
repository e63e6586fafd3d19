// Package googleid verifies Google Sign-In ID tokens.
//
// Tokens are RS256 JWTs signed by keys Google publishes as a JWKS. The
// Verifier keeps those keys in a jwtx.KeySet, fetches them on first use,
// refetches when a token names an unknown kid (Google rotates keys every
// few days), and can be kept warm by a KeyRefresher.
//
// Verify checks the signature, issuer, audience (the OAuth client id) and
// expiry, and returns the verified Identity. Whether an unverified email is
// acceptable is the caller's decision.
package googleid
