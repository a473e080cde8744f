// Package grid arranges dashboard widgets on a four-column grid.
//
// Engine.Arrange places items in order with dense auto-flow: each item goes
// to the first position, scanning rows from the top and columns from the
// left, where its whole column and row span is free. Later small items
// therefore backfill gaps left by earlier large ones. Positions come only
// from spans and order; items never overlap.
//
// A Layout renders the placed items line by line into one string and, in
// edit mode, removes items through their OnRemove hook. There is no
// reordering.
package grid
