package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "fleetota",
	Short: "fleetota - OTA update attempt state inspection and simulation",
	Long:  `Inspects, resets, and simulates the persisted update attempt state the agent uses for download failover, retry backoff, and peer-sharing admission.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("prefs-path", ".artifacts/prefs.db", "Persisted state store path")
	rootCmd.PersistentFlags().String("fsm-db-path", ".artifacts/fsm.db", "Simulation workflow BoltDB path")
	rootCmd.PersistentFlags().Bool("official-build", true, "Treat this build as official (enables backoff and peer limits)")
	rootCmd.PersistentFlags().Bool("http-downloads-enabled", false, "Allow plain-HTTP download sources")
	rootCmd.PersistentFlags().Int64("boot-slot", 0, "Partition slot the system booted from")
	rootCmd.PersistentFlags().Int("max-failures-per-source", 10, "Failure budget per download source")

	viper.BindPFlag("prefs-path", rootCmd.PersistentFlags().Lookup("prefs-path"))
	viper.BindPFlag("fsm-db-path", rootCmd.PersistentFlags().Lookup("fsm-db-path"))
	viper.BindPFlag("official-build", rootCmd.PersistentFlags().Lookup("official-build"))
	viper.BindPFlag("http-downloads-enabled", rootCmd.PersistentFlags().Lookup("http-downloads-enabled"))
	viper.BindPFlag("boot-slot", rootCmd.PersistentFlags().Lookup("boot-slot"))
	viper.BindPFlag("max-failures-per-source", rootCmd.PersistentFlags().Lookup("max-failures-per-source"))
}
