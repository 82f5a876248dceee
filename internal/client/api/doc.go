// Package api is the HTTP client for the GophChat REST API.
//
// Client keeps the access and refresh tokens of the signed-in user. When an
// authenticated call is rejected with 401 and a refresh token is available,
// it exchanges the refresh token once and retries the call.
//
// Error responses are returned as *APIError, which unwraps to one of the
// sentinels ErrUnauthorized, ErrForbidden, ErrNotFound, ErrUnavailable or
// ErrBadRequest so callers can use errors.Is. Transport failures unwrap to
// ErrUnavailable as well.
package api
