// Package session keeps the Bartr session state: the access/refresh token
// pair and the cached profile of the signed-in user.
//
// State is mirrored to a durable Storage so that a reload (or a new CLI
// invocation) finds the session again. The in-memory copy is hydrated
// lazily on first read. Three Storage implementations are provided:
//
//   - MemoryStorage: process-local, used in tests and as the live server
//     default
//   - FileStorage: a JSON file, used by the command-line client
//   - SQLStorage: rows in a SQL table namespaced per browser session
//
// SetTokens and ClearTokens are the only operations that change the token
// pair.
package session
