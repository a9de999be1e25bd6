// Package models holds the GORM row types backing the party feed
// tables. Domain entities stay free of ORM tags; these models carry the
// column mappings and convert to and from the domain types, and the
// repositories only ever touch the database through them.
//
// party.go maps the Party and Going tables, identity.go the Profile
// table, and base.go the shared ID, timestamp, and version columns.
package models
