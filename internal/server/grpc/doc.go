// Package grpcserver hosts a gRPC server exposing the standard
// grpc.health.v1 service for the parasol runtime, plus server reflection.
// The runtime is probed periodically while serving.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: config.Default()})
//	s := grpcserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":50051")
package grpcserver
