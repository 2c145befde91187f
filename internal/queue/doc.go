// Package queue persists per-folder pipeline state in SQLite. Every status
// transition is written through Store.Update, so the database always reflects
// how far each product folder progressed even if the process dies mid-stage.
package queue
