package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/tvanderstad/parasol-db/internal/config"
	"github.com/tvanderstad/parasol-db/internal/runtime"
	grpcserver "github.com/tvanderstad/parasol-db/internal/server/grpc"
	httpserver "github.com/tvanderstad/parasol-db/internal/server/http"
	logpkg "github.com/tvanderstad/parasol-db/pkg/log"
)

type Options struct {
	HTTPAddr string
	// GRPCAddr enables the gRPC health endpoint when set.
	GRPCAddr string
	Config   cfgpkg.Config
	Logger   logpkg.Logger
	// Ready, if set, receives the bound address once the listener is up.
	Ready chan<- string
}

// Run opens the runtime, serves HTTP and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := opts.Logger
	if logger == nil {
		var err error
		if logger, err = logpkg.ApplyConfig(&opts.Config.Log); err != nil {
			logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel), logpkg.WithFormatter(&logpkg.TextFormatter{}))
		}
	}
	// Pebble and net/http write through the standard logger.
	logpkg.RedirectStdLog(logger)

	rt, err := runtime.Open(runtime.Options{Config: opts.Config, Logger: logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("Starting parasol server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("grpc", opts.GRPCAddr),
		logpkg.Str("dataDir", rt.DataDir()),
		logpkg.Str("level", opts.Config.Log.Level),
		logpkg.Str("format", opts.Config.Log.Format),
		logpkg.Bool("metrics", opts.Config.Metrics.Enabled),
	)

	var wg sync.WaitGroup
	var gsrv *grpcserver.Server
	if opts.GRPCAddr != "" {
		gsrv = grpcserver.New(rt, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := gsrv.ListenAndServe(sctx, opts.GRPCAddr); err != nil && sctx.Err() == nil {
				logger.Error("grpc error", logpkg.Err(err))
			}
		}()
	}

	hsrv := httpserver.New(rt, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- hsrv.ListenAndServe(sctx, opts.HTTPAddr) }()

	if opts.Ready != nil {
		go func() {
			for sctx.Err() == nil {
				if a := hsrv.Addr(); a != nil {
					opts.Ready <- a.String()
					return
				}
				time.Sleep(5 * time.Millisecond)
			}
		}()
	}

	select {
	case <-sctx.Done():
		err = <-errCh
	case err = <-errCh:
	}
	// Stop servers before the deferred runtime Close.
	stop()
	if gsrv != nil {
		gsrv.Close()
	}
	hsrv.Close()
	wg.Wait()
	if err != nil {
		logger.Error("http server stopped", logpkg.Err(err))
		return err
	}
	logger.Info("parasol server stopped")
	return nil
}
