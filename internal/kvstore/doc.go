// Package kvstore persists opaque structured values in SQLite.
//
// The batch processor stores its queue and progress records under two logical
// keys; this package gives it durable get/set/delete plus a transactional
// Update so the two keys can be written as one atomic unit. The database is
// transient run state rather than a long-term archive; schema changes bump
// schemaVersion and users delete the database to reset.
package kvstore
