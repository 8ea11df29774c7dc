// Package database drives indexes from a base log.
//
// A Database serializes writers: each Write appends a batch to the base log
// and then calls Update on every registered index with the base log's new
// CurrentSeq. Readers go straight to the log and indexes; an index that lags
// is still queryable at any seq, so staleness is never an error.
package database
