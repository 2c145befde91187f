// Package workflow sequences product folders through the publishing
// pipeline: identification, image optimization, optional background removal,
// CDN upload, listing generation, publish, and terminal filing. Each folder
// is processed to a terminal state exactly once per cycle; a stage failure
// files the folder under the failed root and leaves later folders untouched.
package workflow
