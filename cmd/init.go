package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/reach/analyzer"
)

// initCmd: reach init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new analysis configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := initConfigurationFile(cfgFile)
		if err != nil {
			logger.Error("Error initializing config file", zap.Error(err))
			return
		}
		fmt.Printf("Configuration file created/updated: %s\n", path)
	},
}

func initConfigurationFile(configurationPath string) (string, error) {
	if configurationPath == "" {
		configurationPath = analyzer.DefaultConfigFile
	}

	d, err := yaml.Marshal(analyzer.DefaultConfig())
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(configurationPath, d, 0o644); err != nil {
		return "", err
	}
	return configurationPath, nil
}
