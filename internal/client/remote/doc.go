// Package remote is the client side of the tailorkeeper.v1.Records service.
//
// Remote is what the sync engine replays pending records against. GRPCClient
// implements it over gRPC and translates status codes into the sentinels
// below, so callers never inspect gRPC types:
//
//   - ErrUnavailable: the call did not reach the server or timed out. Retry on
//     the next pass.
//   - ErrUnauthorized: the owner token was rejected.
//   - ErrRejected: the server refused this payload (validation or a missing
//     parent record).
//   - common.ErrNotFound: the record does not exist for this owner.
//   - *models.ConflictError: the record changed on the server after the
//     base version the update carried.
package remote
