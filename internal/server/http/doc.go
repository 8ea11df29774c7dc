// Package httpserver provides a small local REST gateway over a parasol
// runtime: table management, command writes, point-in-time state reads,
// filtered record scans, SSE tailing, merged views and /metrics.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: config.Default()})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
