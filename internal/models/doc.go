// Package models defines the tailoring records shared by the client and the
// server: the entity sum type (Client, Order, InventoryItem, Payment), its
// JSON encoding and validation, and Canonical, the server-confirmed form of a
// record.
//
// Entity is sealed: only the four types declared here implement it, and code
// that dispatches on the concrete type switches over all of them.
package models
