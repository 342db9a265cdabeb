// Package ledger holds the record arithmetic and the read models built on it.
//
// Apply is the single place a record changes: it folds one interaction into a
// target's record. The Aggregator runs Apply inside the store's atomic
// read-modify-write. Rankings and profiles are pure functions over a group's
// records and never write.
package ledger
