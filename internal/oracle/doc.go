// Package oracle defines what the engine needs to know from the region
// inference: outlives constraints between regions, loans and points they are
// invalidated at, and regions live at a point.
//
// Facts is the in-memory implementation fixtures and tests fill in.
package oracle
