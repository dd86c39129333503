package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/oshokin/extension-host/internal/config"
	"github.com/oshokin/extension-host/internal/logger"
)

// Options controls the host process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the address derived from the settings.
	ListenAddress string
	// HostDir overrides the served directory.
	HostDir string
}

const (
	// readHeaderTimeout bounds slow clients.
	readHeaderTimeout = 10 * time.Second
	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 5 * time.Second
)

// errHostDirMissing is returned when the served directory does not exist.
var errHostDirMissing = errors.New("host directory does not exist")

// Run serves the host directory until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "serve")

	settings, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.HostDir != "" {
		settings.HostDir = opts.HostDir
	}

	if opts.ListenAddress != "" {
		settings.ListenAddress = opts.ListenAddress
	}

	if err = config.Validate(settings); err != nil {
		return err
	}

	if info, statErr := os.Stat(settings.HostDir); statErr != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", errHostDirMissing, settings.HostDir)
	}

	listenAddress := settings.ResolveListenAddress()

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	logger.InfoKV(ctx, "Update host listening",
		"listen_address", lis.Addr().String(), "host_dir", settings.HostDir, "host_url", settings.HostURL)

	return serve(ctx, lis, settings.HostDir)
}

// serve runs the HTTP server on lis and shuts it down gracefully when ctx ends.
func serve(ctx context.Context, lis net.Listener, dir string) error {
	server := &http.Server{
		Handler:           newHandler(ctx, dir),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	// Done channel is closed after Shutdown finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()
		logger.Info(ctx, "Shutting down update host")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "Update host shutdown incomplete", "error", err)
		}
	}()

	if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}

	<-done
	logger.Info(ctx, "Update host stopped")

	return nil
}
