// Package syncer replays the pending-mutation queue against the server.
//
// A pass reads the pending records of every entity type once and replays
// each of them: creates for records that never reached the server, updates
// guarded by the record's base version for confirmed ones, deletes for
// tombstones. Types without a parent run in parallel; orders start after
// clients finish and payments after orders, so ids assigned to freshly
// created parents are visible to their children.
//
// Failures are never retried inside a pass. A record that could not be
// replayed stays pending for the next pass; a version mismatch turns the
// record into a conflict that only the user can resolve. The outcome of a
// pass is reported once, as a Summary.
package syncer
