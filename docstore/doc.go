// Package docstore is the document store client consumed by the hooks.
//
// A Client talks to a server Backend and keeps a local mirror of every
// document it has seen, which gives it three read modes: from the server,
// from the local cache, or the default mode where the client picks (server
// first, mirror when the backend is unavailable).
//
// Queries are expressed as an ordered list of Constraint values (where,
// order-by, limit, start-after, end-before). Backends that cannot push
// constraints down evaluate them in process with Evaluate.
package docstore
