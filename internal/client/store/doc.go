// Package store is the client's local record store: four SQLite tables
// (clients, orders, inventory, payments) holding every record together with
// its sync state. It is the single source of truth the UI reads from; the
// pending-mutation queue is the set of rows with pending_sync set.
//
// Every write is persisted before it returns. Writes to one table are
// serialized by a per-table mutex, and writes spanning tables (Rekey) take the
// locks in models.All order. Listeners registered with Watch are told which
// table changed after each committed write.
package store
