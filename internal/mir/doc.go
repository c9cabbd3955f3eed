// Package mir defines the typed control-flow-graph model the place capability
// graph engine consumes.
//
// A function body is a list of locals with their types and a list of basic
// blocks. Each block holds a sequence of statements followed by a single
// terminator. Places are a root local plus a path of projections (field,
// dereference, index, constant index, subslice, downcast) and are plain
// comparable values, so they can be used as map keys without any interning.
//
// The model is deliberately small. It carries just enough type information
// to know the shape of every place: which fields a struct or tuple has, what
// a reference or box points to, which lifetime regions appear in a type and
// in what order. Types are built once by a loader and shared by pointer;
// nothing in this package mutates them afterwards.
//
// Regions are abstract identifiers supplied by an external inference oracle.
// This package only records where they occur and in which order, the
// relations between them live elsewhere.
package mir
