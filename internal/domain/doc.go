// Package domain defines the core ledger types and the contracts between the
// application layer and its adapters.
//
// Files are concept oriented (record.go, setting.go, names.go). Interfaces live
// here so adapters and services can depend on them without importing each other.
package domain
