// Package cmd implements the refcache command line.
package cmd

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by refcache.
const EnvPrefix = "REFCACHE"

// NewRootCommand builds the command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "refcache",
		Short: "Repository service with a reference cache",
		Long: "Runs a repository service that caches lookups by identity as records " +
			"and lookups by any other condition as references to that identity.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, v)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default: ./refcache.yaml)")
	flags.String("env-file", ".env", "dotenv file loaded before the environment is read")
	flags.String("backend", defaultBackend, "cache backend: sturdyc, ristretto, redis or none")
	flags.String("store", defaultStore, "record store: memory, sqlite or postgres")
	flags.String("log", defaultLog, "logger: zap, logrus or slog")
	flags.Bool("debug", false, "log at debug level")
	flags.Bool("metrics", false, "print cache counters when done")

	for _, name := range []string{"backend", "store", "log", "debug", "metrics"} {
		v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(newRunCommand(v))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.Flags()

	if envFile, _ := flags.GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if cfg, _ := flags.GetString("config"); cfg != "" {
		v.SetConfigFile(cfg)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("refcache")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}
