// Package types defines the EntityStore interface, the record and schema
// types it moves, the reference-rule and slot-array configuration shared by
// the integrity core, and the standard errors for powdertrack.
package types
