// Package catalog records which tables exist and how their events are
// encoded. Records live under catalog/{table} as JSON.
package catalog
