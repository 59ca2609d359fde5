// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the onenote-export CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/onenote-export/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// configName is the base name of the config file searched for in the
// working directory and in ~/.config/onenote-export.
const configName = "onenote-export"

// rootCmd is the base command for the onenote-export CLI.
var rootCmd = &cobra.Command{
	Use:   "onenote-export",
	Short: "Back up every local OneNote notebook to a package file",
	Long: `onenote-export asks the running OneNote application for its notebook
hierarchy, checks it against the OneNote 2013 schema, and publishes each
notebook that has not been exported yet into the backups directory.

Use export to run a backup, validate to inspect a hierarchy snapshot
without exporting, and history to review previous runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return logger.Init(viper.GetString("log_level"))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./"+configName+".yaml or ~/.config/"+configName+"/"+configName+".yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("backups-dir", "Backups", "directory that receives the notebook packages")
	rootCmd.PersistentFlags().String("ledger", "", "run history database (default: <backups-dir>/.onenote-export.db)")
	rootCmd.PersistentFlags().String("schema", defaultSchema, "XSD the hierarchy is validated against")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("backups_dir", rootCmd.PersistentFlags().Lookup("backups-dir"))
	_ = viper.BindPFlag("ledger", rootCmd.PersistentFlags().Lookup("ledger"))
	_ = viper.BindPFlag("schema", rootCmd.PersistentFlags().Lookup("schema"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if err := loadConfig(viper.GetViper(), cfgFile); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig reads cfgFile, or searches the config paths for
// onenote-export.yaml when cfgFile is empty.
func loadConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		for _, dir := range configPaths() {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("ONENOTE_EXPORT")
	v.AutomaticEnv()

	return v.ReadInConfig()
}

func configPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", configName))
	}
	return paths
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
