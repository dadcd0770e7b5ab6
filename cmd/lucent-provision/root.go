package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lucent-labs/lucent-provision/internal/app"
	"github.com/lucent-labs/lucent-provision/internal/config"
	"github.com/lucent-labs/lucent-provision/internal/logger"
)

type contextKey string

const configKey = contextKey("config")

var rootCmd = &cobra.Command{
	Use:   "lucent-provision",
	Short: "Rebuild and relaunch the lucent server container",
	Long:  "Removes any existing container of the configured name, rebuilds the image from the build context, starts a fresh detached container with the fixed port and bind mount, installs Python dependencies inside it, and follows its logs until interrupted.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(); err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := context.WithValue(cmd.Context(), configKey, cfg)
		cmd.SetContext(ctx)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration.
		cfg := cmd.Context().Value(configKey).(*config.Config)

		// Set up logger.
		logInstance := logger.SetupLogger(&cfg.Logging)

		// Create the application.
		application, err := app.New(cfg, logInstance)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}
		defer application.Close()

		// Create a context with cancellation for graceful shutdown.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Listen for OS signals. The log-streaming step blocks until the
		// operator interrupts.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			logInstance.Info().Msgf("Received signal: %v", sig)
			cancel()
		}()

		// Run the provisioning sequence. When context is canceled, Run returns.
		if err := application.Run(ctx); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "INFO", "set log level (e.g. INFO, DEBUG, WARN)")
	rootCmd.Flags().String("container-name", "lucent-server-fastapi", "name of the managed container")
	rootCmd.Flags().String("image", "lucent-server:latest", "tag of the built image")
	rootCmd.Flags().String("context", ".", "build context directory")
	rootCmd.Flags().Uint16("host-port", 8000, "host port to publish")
	rootCmd.Flags().Uint16("container-port", 8000, "container port to publish")
	rootCmd.Flags().String("requirements", "requirements.txt", "requirements manifest, relative to the container work dir")
	rootCmd.Flags().Bool("install-deps", true, "run pip install inside the container after start")
	viper.BindPFlag("log.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("provision.container_name", rootCmd.Flags().Lookup("container-name"))
	viper.BindPFlag("provision.image_name", rootCmd.Flags().Lookup("image"))
	viper.BindPFlag("provision.build_context", rootCmd.Flags().Lookup("context"))
	viper.BindPFlag("provision.host_port", rootCmd.Flags().Lookup("host-port"))
	viper.BindPFlag("provision.container_port", rootCmd.Flags().Lookup("container-port"))
	viper.BindPFlag("provision.requirements_file", rootCmd.Flags().Lookup("requirements"))
	viper.BindPFlag("provision.install_deps", rootCmd.Flags().Lookup("install-deps"))

	// Enable automatic environment variable binding.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Execution error: %v\n", err)
		os.Exit(1)
	}
}
