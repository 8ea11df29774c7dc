// Package cli provides the `parasol` command line.
//
// Commands open the data directory directly, so they cannot run while a
// `parasol serve` process holds it. Use the HTTP gateway in that case.
//
// Usage
//
//	parasol put theme dark            # seq: 1
//	parasol put theme light           # seq: 2
//	parasol get theme --at 1          # dark
//	parasol state --at 1
//	parasol clear --table sessions
//	parasol scan --reverse --filter 'json.op == "put"' --limit 10
//	parasol apply -f commands.ndjson  # {"op":"put","key":"k","value":"v"} per line
//	parasol verify --all
//	parasol tables
//	parasol merge orders payments --from 10
//	parasol export --xz -o orders.ndjson.xz -t orders
//	parasol import -f orders.ndjson.xz -t orders-copy
//	parasol serve --http :8080
//
// # Configuration
//
// Settings come from --config (JSON or YAML), then PARASOL_* environment
// variables, then flags. --data-dir, --table, --log-level and --log-format
// are accepted by every command.
package cli
