package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/microsoft/fhir-codegen-sub025/internal/config"
	"github.com/microsoft/fhir-codegen-sub025/internal/platform/fhir"
	"github.com/microsoft/fhir-codegen-sub025/internal/platform/middleware"
	"github.com/microsoft/fhir-codegen-sub025/internal/platform/openapi"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "fhir-codegen",
		Short:         "Generate OpenAPI documents from FHIR definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(openapiCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openapiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "openapi",
		Short: "Write the OpenAPI document to --output or stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the generated document and Swagger UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	// stdout may carry the document, so logs go to stderr.
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// inputs are the loaded generator inputs.
type inputs struct {
	definitions  *fhir.DefinitionCollection
	capabilities *fhir.CapabilityStatement
	smart        *fhir.SmartConfiguration
}

func loadInputs(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*inputs, error) {
	dc, err := fhir.NewLoader(logger).LoadPackages(ctx, cfg.Packages...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	in := &inputs{definitions: dc}

	if cfg.CapabilitiesFile != "" {
		if in.capabilities, err = fhir.LoadCapabilityStatement(cfg.CapabilitiesFile); err != nil {
			return nil, err
		}
	}
	if cfg.SmartConfigFile != "" {
		if in.smart, err = fhir.LoadSmartConfiguration(cfg.SmartConfigFile); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (in *inputs) builderOptions(logger zerolog.Logger) []openapi.BuilderOption {
	options := []openapi.BuilderOption{openapi.WithLogger(logger)}
	if in.smart != nil {
		options = append(options, openapi.WithSmartConfiguration(in.smart))
	}
	return options
}

func runExport(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, err := cfg.ToOptions()
	if err != nil {
		return err
	}
	in, err := loadInputs(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// The file is only created once the document is complete.
	var buf bytes.Buffer
	stats, err := openapi.Export(&buf, in.definitions, in.capabilities, opts, in.builderOptions(logger)...)
	if err != nil {
		return err
	}
	if cfg.Output == "" {
		if _, err := stdout.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
	} else if err := os.WriteFile(cfg.Output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", cfg.Output, err)
	}
	logger.Info().
		Int("paths", stats.Paths).
		Int("operations", stats.Operations).
		Int("schemas", stats.Schemas).
		Int("query_parameters", stats.QueryParameters).
		Int("description_warnings", stats.DescriptionWarnings).
		Str("output", cfg.Output).
		Msg("openapi document written")
	return nil
}

// newServer wires the document endpoints behind the standard middleware.
func newServer(doc *openapi3.T, opts openapi.Options, logger zerolog.Logger) (*echo.Echo, error) {
	h, err := openapi.NewHandler(doc, opts)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	h.RegisterRoutes(e.Group(""))
	return e, nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, err := cfg.ToOptions()
	if err != nil {
		return err
	}
	in, err := loadInputs(ctx, cfg, logger)
	if err != nil {
		return err
	}

	doc, stats := openapi.NewBuilder(in.definitions, in.capabilities, opts, in.builderOptions(logger)...).Build()
	logger.Info().Int("paths", stats.Paths).Int("operations", stats.Operations).Msg("openapi document built")

	e, err := newServer(doc, opts, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
