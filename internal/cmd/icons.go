package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zsprackett/ai-battery/internal/iconset"
)

func newIconsCmd(rt *runtime) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:       "icons gauges|examples|appicon",
		Short:     "Generate icon assets",
		Long:      `Icons renders the pre-built dial icons, the nested-arc previews or the application icon into --dir.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"gauges", "examples", "appicon"},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := rt.setupLogging(false)
			defer closeLog()
			out := cmd.OutOrStdout()

			switch args[0] {
			case "gauges":
				n, err := iconset.GenerateDials(dir, logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d icons to %s\n", n, dir)
			case "examples":
				files, err := iconset.GenerateExamples(dir)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintf(out, "Wrote %s\n", f)
				}
			case "appicon":
				res, err := iconset.BuildAppIcon(dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %s\nWrote %s\n", res.IconsetDir, res.ICNSPath)
			}
			logger.Info("icons: generated", "kind", args[0], "dir", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "icons", "output directory")
	return cmd
}
