// Package services holds the shared error taxonomy and context plumbing used
// by the external service clients (CDN, AI, catalog API) and the pipeline
// stages that call them. Stage failures are tagged with sentinel errors so the
// workflow manager and retry helpers can classify them without string
// matching.
package services
