// Package store maps typed objects onto a quad backend.
//
// A Store holds one compiled schema and a backend. Objects are written as
// the quads the schema encodes them to; reads project a constraint tree into
// the backend's nested query format and coerce the raw results back into
// typed values. Updates in place send only the quads that changed.
//
// # Backends
//
// Any type with Write, Delete and Query satisfies Backend. The in-memory
// graph backend, the SQLite backend and the Cayley HTTP client all do.
// Backends that also implement Applier get atomic updates; for the others a
// put that changes an existing object is two requests, and a failure after
// the first one is reported as a PartialUpdateError.
//
// Reads see one value per scalar field, the first stored. A field left with
// several values by racing puts on one id keeps the extras until they are
// removed by hand: later puts diff against the first value only, and Delete
// removes only the quads it reads back.
//
// # Thread Safety
//
// A Store is safe for concurrent use once its schema is set. Concurrent puts
// of the same id race; the last completed remove/add pair wins.
package store
