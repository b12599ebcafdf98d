package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/faceclock/faceclock/internal/recognize"
	"github.com/faceclock/faceclock/internal/web"
	"github.com/faceclock/faceclock/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the Faceclock API server.
The server exposes the kiosk endpoints (check-in, check-out, breaks),
enrollment with the capture quality gate, day status queries and the
exception request workflow.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fmt.Printf("Connecting to PostgreSQL and HRIS databases...\n")
	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Printf("Building in-memory HNSW index for face matching...\n")
	if err := d.matches.Reload(ctx, d.embeddings); err != nil {
		return fmt.Errorf("loading embeddings: %w", err)
	}
	fmt.Printf("Face index ready with %d embeddings\n", d.matches.Count())

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(host, port, web.Handlers{
		Attendance: handlers.NewAttendanceHandler(d.matches, d.engine, d.cfg.Embedding.MatchTimeout),
		Enroll: handlers.NewEnrollHandler(
			d.embeddings, d.matches, recognize.NewQualityScorer(),
			d.directory, d.cfg.Embedding.Dim, d.cfg.Embedding.Model,
		),
		Exceptions: handlers.NewExceptionHandler(d.processor),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Faceclock API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
