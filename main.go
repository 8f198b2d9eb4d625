// main.go
// Application entry point: loads configuration, initializes logging and runs
// the chat relay until a shutdown signal arrives.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/erilali/chatrelay/internal/api"
	"github.com/erilali/chatrelay/internal/config"
	"github.com/erilali/chatrelay/internal/logger"
	gfshutdown "github.com/gelmium/graceful-shutdown"
)

const defaultConfigFile = "chatrelay.json"

func main() {
	configPath := os.Getenv("CHAT_CONFIG")
	if configPath == "" {
		configPath = defaultConfigFile
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(cfg.Log)
	serverLogger := logger.NewLogger("server")
	serverLogger.WithFields(map[string]interface{}{
		"level":       cfg.Log.Level,
		"log_to_file": cfg.Log.LogToFile,
		"log_to_json": cfg.Log.LogToJSON,
		"file_path":   cfg.Log.FilePath,
	}).Info("Logger configuration details")

	srv := api.New(cfg, serverLogger)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			serverLogger.Fatalf("ListenAndServe: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"relay": func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		},
	)
	exitCode := <-wait
	serverLogger.Infof("Relay exited with code %d", exitCode)
	os.Exit(exitCode)
}
