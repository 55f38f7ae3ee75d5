// Package core defines the domain model shared by every pipeline
// component: source items and their embedded attributes, content
// fingerprints, the target schema, resolved records, lifecycle stages,
// and the failure taxonomy used for retry and reporting decisions.
package core
