package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/logia/logia/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "logia",
	Short: "Delivery-disruption coordination hub",
	Long: `LOGIA coordinates specialized delivery agents (safety assessment,
route re-planning, order cancellation) that jointly respond to last-mile
delivery disruptions. The hub dispatches disruption events to capable
agents, reconciles their conflicting recommendations, and emits a single
auditable decision.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/logia/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/logia")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("LOGIA")
	// Replace dots with underscores for nested keys in env vars
	// e.g., LOGIA_HUB_DISPATCH_DEADLINE_MS for hub.dispatch_deadline_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
