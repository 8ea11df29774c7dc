// Package metrics exposes parasol's Prometheus collectors.
//
// All collectors live on a per-runtime registry. Storage and write dispatch
// report through hooks (Storage, Dispatch); indexes, composites and disk
// usage are sampled at scrape time through Register* functions.
package metrics
