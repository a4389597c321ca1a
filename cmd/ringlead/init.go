package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mwhitford/ringlead/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config and data files",
	Long: `Write config.yaml, extensions.json, and lead_owners.json to the current
directory. Existing files are left untouched. Edit the data files with your
real extension ids and CRM owner ids before the first sync.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = "config.yaml"
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}

		defaults := config.DefaultConfig()
		if err := config.WriteExampleData(defaults.Sync.ExtensionsFile, defaults.Sync.LeadOwnersFile); err != nil {
			return err
		}

		fmt.Printf("wrote %s, %s, %s\n", path, defaults.Sync.ExtensionsFile, defaults.Sync.LeadOwnersFile)
		return nil
	},
}
