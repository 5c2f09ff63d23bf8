package main

import (
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize in.gltf -o out.gltf",
	Short: "Optimize the characters of in.gltf and write the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output glTF file, .glb selects the binary form")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	if flagOutput == "" {
		return errors.Errorf("No output file given, use -o")
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	scene, res, err := process(args[0], opts)
	if res != nil {
		res.WriteReport(os.Stdout)
	}
	if err != nil {
		return err
	}

	if err := scene.Apply(); err != nil {
		return errors.Wrapf(err, "Failed to update %s", args[0])
	}
	if err := scene.Save(flagOutput); err != nil {
		return err
	}
	log.Printf("[gltf] Saved %s", flagOutput)
	return nil
}
