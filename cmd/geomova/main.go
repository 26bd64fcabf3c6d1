// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the geomova CLI, the converter that
// turns CAD and SAP2000 geometry exports into MOVA geometry files.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the geomova CLI.
var rootCmd = &cobra.Command{
	Use:   "geomova",
	Short: "Convert CAD and SAP2000 geometry exports to MOVA input files",
	Long: `geomova reads structural geometry out of engineering exports (an AutoCAD
DXF subset or a SAP2000 .s2k table export) and writes the geometry text file
MOVA consumes: numbered nodes, node-to-node lines, and sensor channel
definitions.

Sensor channels are text entities on direction layers (x_pos, x_neg, y_pos,
y_neg, z_pos, z_neg) placed on line endpoints, or joint forces under the
References and Setup_N load patterns on the SAP2000 side.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./geomova.yaml or ~/.config/geomova/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("geomova")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "geomova"))
		}
	}

	viper.SetEnvPrefix("GEOMOVA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
