// Package store owns a document's indirect objects.
//
// A [Store] maps references to objects, allocates fresh references from a
// monotonically increasing counter, and carries the trailer's distinguished
// references (Root, and optionally Info and Encrypt). Objects are never
// physically removed: detaching a reference from the reachable graph orphans
// the object, and the writer simply omits unreachable objects from output.
//
// [Copy] deep-copies an object and everything reachable from it out of one
// store into another, rewriting every nested reference to a freshly
// allocated destination reference. Shared structure and reference cycles in
// the source are preserved: each distinct source object is copied exactly
// once, and a cycle resolves to the destination reference allocated before
// recursion rather than looping.
package store
