package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/tamactl/internal/config"
	"github.com/danmuck/tamactl/internal/logging"
	"github.com/danmuck/tamactl/internal/observability"
	"github.com/danmuck/tamactl/internal/server"
	"github.com/danmuck/tamactl/internal/world"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "petctl",
	Short:         "Run and drive a simulated virtual pet",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.ConfigureRuntime()
		raw := strings.TrimSpace(viper.GetString("log-level"))
		if raw == "" {
			return nil
		}
		lvl, err := zerolog.ParseLevel(raw)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		observability.InitLogger("petctl", lvl)
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "petctl: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TAMACTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("world", "w", "", "world config (toml)")
	rootCmd.PersistentFlags().String("journal", "", "sqlite journal path")
	rootCmd.PersistentFlags().String("log-level", "", "log level override")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("world", rootCmd.PersistentFlags().Lookup("world"))
	_ = viper.BindPFlag("journal", rootCmd.PersistentFlags().Lookup("journal"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(stateCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(advanceCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())
}

func loadWorldConfig() (config.WorldConfig, error) {
	path := strings.TrimSpace(viper.GetString("world"))
	if path == "" {
		return config.DefaultWorldConfig(), nil
	}
	return config.LoadWorldConfig(path)
}

func openWorld(ctx context.Context) (*world.World, error) {
	cfg, err := loadWorldConfig()
	if err != nil {
		return nil, err
	}
	return world.Open(ctx, cfg, world.Options{JournalPath: viper.GetString("journal")})
}

func serveCmd() *cobra.Command {
	var settingsPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a world over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := defaultServeSettings()
			if settingsPath != "" {
				var err error
				if settings, err = loadServeSettings(settingsPath); err != nil {
					return err
				}
			}
			if addr := viper.GetString("addr"); addr != "" {
				settings.Addr = addr
			}
			if settings.Journal != "" && viper.GetString("journal") == "" {
				viper.Set("journal", settings.Journal)
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			w, err := openWorld(ctx)
			if err != nil {
				return err
			}
			defer w.Close()
			srv := server.New(w, server.Options{
				ID:          settings.ID,
				Addr:        settings.Addr,
				CORSOrigins: settings.CORSOrigins,
				GasLimit:    settings.GasLimit,
				AdminToken:  settings.AdminToken,
			})
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&settingsPath, "settings", "", "serve settings (toml)")
	cmd.Flags().String("addr", "", "listen address")
	_ = viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the pet record of a fresh or journaled world",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorld(cmd.Context())
			if err != nil {
				return err
			}
			defer w.Close()
			st, err := w.Pet.Snapshot()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(st)
			}
			renderState(os.Stdout, st, w.Runtime.Now())
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Manage config files"}
	var overwrite bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a world config template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], "world", overwrite); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(server.Version)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
