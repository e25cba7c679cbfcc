package cmd

import (
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

func newPackCommand(flags *globalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "pack [paths...]",
		Short: "Save resources in their native formats",
		Long: `Loads the given paths, or every indexed source file, and writes each
resource that has a native format. Without --out files are written next to
their sources; with --out the project layout is mirrored under that
directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			bar := &progressBar{}
			e, err := flags.newEngine(cfg, nil, bar)
			if err != nil {
				return err
			}
			defer e.Shutdown()

			_, handles, loadErr := loadAll(cmd.Context(), e, args, bar)
			written, saveErr := pack(e, handles, out)

			data := pterm.TableData{{"Resource", "Written to"}}
			for _, w := range written {
				data = append(data, []string{w[0], w[1]})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").
				WithWriter(cmd.OutOrStdout()).WithData(data).Render(); err != nil {
				return err
			}
			return multierr.Combine(loadErr, saveErr)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory")
	return cmd
}

// pack saves every savable resource behind handles and returns
// (resource path, written file) pairs.
func pack(e *engine.Engine, handles []resources.Handle, out string) ([][2]string, error) {
	var written [][2]string
	var errs error
	cache := e.Resources().Cache()
	for _, h := range handles {
		r, ok := cache.Resolve(h)
		if !ok {
			continue
		}
		s, ok := r.(resources.Saver)
		if !ok {
			continue
		}
		dest := resources.NativePath(r, s)
		if out != "" {
			abs, err := filepath.Abs(out)
			if err != nil {
				return written, err
			}
			dest = filepath.Join(abs, filepath.FromSlash(dest))
		}
		if err := cache.Save(h, dest); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		written = append(written, [2]string{r.Path(), dest})
	}
	return written, errs
}
