// Package services holds the server's business logic: owner-scoped record
// operations over the repositories and presigned uploads of order images.
package services
