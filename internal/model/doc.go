// Package model defines the data structures shared across pastetrace:
// scored discovery results, aggregated reports, and run records.
//
// The model package has no dependencies on other internal packages so that
// every layer (discovery engine, persistence, report writers, HTTP server)
// can exchange data without import cycles.
package model
