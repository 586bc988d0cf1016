// Package conflicts lets the user settle records the sync engine marked as
// conflicted, either keeping the local edit or taking the server's copy.
package conflicts
