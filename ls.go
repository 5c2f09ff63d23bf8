package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mogaika/optchar/config"
)

var lsCmd = &cobra.Command{
	Use:   "ls in.gltf",
	Short: "List the joint hierarchy of every character with its classification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListing(cmd, args[0], func(o *config.Options) { o.ListHierarchy = true })
	},
}

var lpCmd = &cobra.Command{
	Use:   "lp in.gltf",
	Short: "List the joint hierarchy as -p arguments that rebuild it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListing(cmd, args[0], func(o *config.Options) { o.ListHierarchyAsCommands = true })
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(lpCmd)
}

func runListing(cmd *cobra.Command, path string, mode func(*config.Options)) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	opts.ListHierarchy = false
	opts.ListHierarchyAsCommands = false
	mode(&opts)

	_, res, err := process(path, opts)
	if res != nil {
		res.WriteReport(os.Stdout)
		res.WriteListings(os.Stdout)
	}
	return err
}
