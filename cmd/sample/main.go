// Command sample serves a small API built with github.com/bjaus/oai.
//
// Run:
//
//	go run ./cmd/sample serve
//
// Print the OpenAPI document:
//
//	go run ./cmd/sample spec
//	go run ./cmd/sample spec --yaml
//
// Then explore:
//
//	GET  http://localhost:3000/openapi.json   OpenAPI document
//	GET  http://localhost:3000/api/basic      Basic auth demo (test / 123456)
//	GET  http://localhost:3000/api/whoami     optional Bearer auth
//	POST http://localhost:3000/api/users      create user
//	GET  http://localhost:3000/api/users/{id} get user
//	GET  http://localhost:3000/metrics        Prometheus metrics
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bjaus/oai"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sample",
		Short:         "Authorization demo API",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newServeCmd(), newSpecCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

			reg := prometheus.NewRegistry()
			svc := newService(logger, oai.NewMetrics(reg))
			if err := svc.Validate(cmd.Context()); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			srv := &http.Server{Addr: addr, Handler: newMux(svc, reg), ReadHeaderTimeout: readHeaderTimeout}
			go func() {
				<-ctx.Done()
				//nolint:errcheck // best-effort shutdown
				srv.Shutdown(context.WithoutCancel(ctx))
			}()

			logger.Info("starting server", "addr", addr, "spec", "http://localhost"+addr+"/openapi.json")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":3000", "listen address")
	cmd.Flags().BoolVar(&debug, "debug", false, "log request parse failures")
	return cmd
}

func newSpecCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Print the OpenAPI document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := newService(slog.Default(), nil)
			if asYAML {
				return svc.WriteSpecYAML(cmd.OutOrStdout())
			}
			return svc.WriteSpec(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print YAML instead of JSON")
	return cmd
}

// newMux mounts the service under /api next to its document and metrics.
func newMux(svc *oai.Service, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /openapi.json", svc.SpecHandler())
	mux.Handle("GET /openapi.yaml", svc.SpecYAMLHandler())
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/api/", http.StripPrefix("/api", svc))
	return mux
}
