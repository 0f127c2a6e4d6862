// Package pages maintains a document's page tree: the hierarchy of
// intermediate /Pages nodes and /Page leaves reachable from the catalog.
//
// A [Tree] operates on dictionaries held in an object store through the
// small [Resolver] interface. Leaves are addressed by 0-based position in
// document order; insertion and removal walk the tree's cumulative /Count
// entries to find the owning intermediate node, keep every /Count on the
// path consistent, and report out-of-range indices rather than ignoring
// them.
//
// A node's /Parent entry is a back-reference for upward traversal only;
// ownership always flows from the root down through /Kids.
package pages
