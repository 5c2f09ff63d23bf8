package main

import (
	"bytes"
	"log"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mogaika/optchar/config"
	"github.com/mogaika/optchar/gltfchar"
	"github.com/mogaika/optchar/optchar"
	"github.com/mogaika/optchar/status"
	"github.com/mogaika/optchar/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve in.gltf",
	Short: "Serve the characters of in.gltf over http for inspection",
	Args:  cobra.ExactArgs(1),
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8000", "listen address")
	serveCmd.Flags().Bool("optimize", false, "optimize before serving, the download then holds the result")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	optimize, _ := cmd.Flags().GetBool("optimize")

	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	listing := opts
	// listing mode classifies without touching the hierarchy
	listing.ListHierarchy = !optimize
	listing.ListHierarchyAsCommands = false

	scene, res, err := process(args[0], listing)
	if err != nil {
		return err
	}
	if optimize {
		if err := scene.Apply(); err != nil {
			return errors.Wrapf(err, "Failed to update %s", args[0])
		}
	}

	st := &web.State{
		Source:      args[0],
		Collection:  scene.Collection,
		Annotations: res.Annotations,
		Export:      scene.WriteBinary,
		Status:      status.NewHub(),
	}
	if !optimize {
		st.Optimize = optimizer(scene, opts)
	}

	var report bytes.Buffer
	res.WriteReport(&report)
	if s := strings.TrimSpace(report.String()); s != "" {
		st.Report = strings.Split(s, "\n")
		for _, line := range st.Report {
			log.Printf("[optchar] %s", line)
			st.Status.Info("%s", line)
		}
	}
	return web.StartServer(addr, st)
}

// optimizer runs the deferred optimization of a served scene. The user
// reparents were already committed by the listing pass.
func optimizer(scene *gltfchar.Scene, opts config.Options) func() (*optchar.Result, error) {
	return func() (*optchar.Result, error) {
		opts.Reparent = nil
		opts.ListHierarchy, opts.ListHierarchyAsCommands = false, false
		res, err := optchar.New(opts).Run(scene.Collection)
		if err != nil {
			return res, err
		}
		if err := scene.Apply(); err != nil {
			return res, errors.Wrap(err, "Failed to update scene")
		}
		log.Printf("[optchar] Optimized %d characters", scene.Collection.NumCharacters())
		return res, nil
	}
}
