// Package common contains shared constants and sentinel errors used across
// tailorkeeper components.
package common

// AuthorizationHeaderName is the gRPC metadata key carrying the owner token
// on outbound requests ("Bearer <jwt>").
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the token in AuthorizationHeaderName values.
const BearerPrefix = "Bearer "

// PingMessage is the body the liveness endpoint answers with.
const PingMessage = "pong"
