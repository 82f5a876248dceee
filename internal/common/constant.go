// Package common contains shared constants and sentinel errors used across
// GophChat components.
package common

// AuthorizationHeaderName carries the bearer access token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside the Authorization header.
const BearerPrefix = "Bearer "
