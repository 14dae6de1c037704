// Package ir provides the value model shared by every perstore package.
//
// Objects handed to the store, constraint trees produced by the filter
// translator, query trees sent to a backend and the results coming back are
// all trees of IRValue. This package imports nothing internal so it stays the
// foundational layer.
//
// Key design constraints:
//   - IRValue is sealed; type switches over it are exhaustive
//   - IRObject is unordered; field order comes from the schema, never the map
//   - Every scalar has exactly one lexical form (see Lexical), which is the
//     string stored as a quad object
package ir
