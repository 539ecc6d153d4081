// Package jwt is the token codec: it signs and verifies the access and
// refresh tokens the session manager hands out. The claim set is closed
// and typed; verification failures collapse into exactly three errors
// (ErrExpired, ErrBadSignature, ErrMalformed) so callers never branch
// on library internals.
package jwt
