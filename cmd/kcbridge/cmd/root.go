package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/mappings"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/roles"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/cmd/users"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/config"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/logging"
)

var (
	cfg     *config.Config
	logger  *logrus.Logger
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "kcbridge",
	Short: "Keycloak identity bridge for the admin panel",
	Long: `kcbridge signs administrators in against a Keycloak realm, provisions the
matching local admin account, and maps realm roles to local admin roles.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = logging.New(cfg.Debug, cfg.LogFormat)
		if cfgFile != "" {
			logger.WithField("file", viper.ConfigFileUsed()).Debug("loaded config file")
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to a YAML config file")
	flags.String("db-url", "", "Database connection URL (env: KCBRIDGE_DATABASE_URL)")
	flags.String("server-addr", "", "Server bind address (env: KCBRIDGE_SERVER_ADDR)")
	flags.Bool("debug", false, "Enable debug logging (env: KCBRIDGE_DEBUG)")
	flags.String("log-format", "", "Log format: text or json (env: KCBRIDGE_LOG_FORMAT)")

	_ = viper.BindPFlag("database_url", flags.Lookup("db-url"))
	_ = viper.BindPFlag("server_addr", flags.Lookup("server-addr"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("log_format", flags.Lookup("log-format"))

	rootCmd.AddCommand(mappings.MappingsCmd)
	rootCmd.AddCommand(roles.RolesCmd)
	rootCmd.AddCommand(users.UsersCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
