// Package runtime wires storage, config, metrics and tables into a
// single-node parasol instance. It exposes Open/Close, a basic health check,
// table management and helpers to open key/value stores and merged views.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	store, _ := rt.OpenKV("orders")
//	_, _ = store.Put(context.Background(), "o-1", "pending")
//	http.Handle("/metrics", rt.MetricsHandler())
package runtime
