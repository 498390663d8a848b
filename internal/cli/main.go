package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/gistcut/internal/pipeline"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gistcut <input>",
		Short:        "Find the distinct ideas in a talk and cut one clip per idea",
		Long:         "Input is a transcript (.json) or a media file. Media is transcribed with whisper.cpp first.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	f := root.Flags()
	f.String("out", "out", "Output directory")
	f.String("strategy", pipeline.StrategyTwoStage, "Extraction strategy: two-stage or windowed")
	f.String("tuning", "", "YAML file overriding validator, scanner and stitcher limits")
	f.Bool("render", false, "Cut and stitch one clip per idea (media input only)")
	f.Bool("burn-subtitles", false, "Burn captions into rendered clips")
	f.Int("concurrency", 4, "Parallel model calls")
	f.Bool("skip-preflight", false, "Use the first configured provider without probing it")

	return root
}
