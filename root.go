package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mogaika/optchar/config"
	"github.com/mogaika/optchar/gltfchar"
	"github.com/mogaika/optchar/optchar"
)

var (
	flagConfig    string
	flagKeep      []string
	flagExpose    []string
	flagKeepAll   bool
	flagReparent  []string
	flagQuantum   float64
	flagTolerance float64
	flagDump      bool
	flagOutput    string
)

var rootCmd = &cobra.Command{
	Use:   "optchar [in.gltf]",
	Short: "Removes unneeded joints and sliders from skinned glTF characters",
	Long: `optchar loads the skins and morph targets of a glTF scene as characters,
finds the joints that never move and the sliders that never change, removes
them, hangs their children on the nearest kept ancestor and requantizes the
vertex weights.

Without a subcommand it behaves like "optchar optimize".`,
	Args:          cobra.ExactArgs(1),
	RunE:          runOptimize,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "YAML directive file applied before the command line flags")
	pf.StringArrayVar(&flagKeep, "keep", nil, "keep the named joints or sliders (comma separated, repeatable)")
	pf.StringArrayVar(&flagExpose, "expose", nil, "keep and expose the named joints (comma separated, repeatable)")
	pf.BoolVar(&flagKeepAll, "keep-all", false, "disable all automatic removal")
	pf.StringArrayVarP(&flagReparent, "reparent", "p", nil, "move joint under parent before optimizing: joint,parent (empty parent moves it to the root)")
	pf.Float64VarP(&flagQuantum, "quantum", "q", config.DefaultQuantum, "round vertex memberships to this step, 0 disables rounding")
	pf.Float64Var(&flagTolerance, "tolerance", config.DefaultTolerance, "threshold used when comparing transforms and slider values")
	pf.BoolVar(&flagDump, "dump", false, "dump the removal plan and result structures to the log")

	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output glTF file, .glb selects the binary form")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("[optchar] %v", err)
		os.Exit(1)
	}
}

// loadOptions builds the options of cmd: the directive file first, then the
// flags given on the command line.
func loadOptions(cmd *cobra.Command) (config.Options, error) {
	opts := config.Default()
	if flagConfig != "" {
		var err error
		if opts, err = config.LoadFile(flagConfig); err != nil {
			return opts, err
		}
	}

	cli := config.Options{
		KeepAll:   flagKeepAll,
		Quantum:   flagQuantum,
		Tolerance: flagTolerance,
		Dump:      flagDump,
	}
	for _, arg := range flagKeep {
		cli.Keep = append(cli.Keep, config.SplitNames(arg)...)
	}
	for _, arg := range flagExpose {
		cli.Expose = append(cli.Expose, config.SplitNames(arg)...)
	}
	for _, arg := range flagReparent {
		r, err := config.ParseReparent(arg)
		if err != nil {
			return opts, err
		}
		cli.Reparent = append(cli.Reparent, r)
	}

	flags := cmd.Flags()
	return opts.Merge(cli, flags.Changed("quantum"), flags.Changed("tolerance")), nil
}

// process loads path and runs the optimizer over its characters.
func process(path string, opts config.Options) (*gltfchar.Scene, *optchar.Result, error) {
	scene, err := gltfchar.Open(path)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[gltf] Loaded %d characters from %s", scene.Collection.NumCharacters(), path)

	res, err := optchar.New(opts).Run(scene.Collection)
	if err != nil {
		return scene, res, err
	}
	return scene, res, nil
}
