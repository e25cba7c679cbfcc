package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

func newInspectCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [paths...]",
		Short: "Load resources and report what they cost",
		Long: `Loads the given paths, or every indexed source file of the project when
none are given, and prints one row per resource followed by a per-type
summary.`,
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

			paths, handles, loadErr := loadAll(cmd.Context(), e, args, bar)
			out := cmd.OutOrStdout()
			if err := renderResources(out, e, paths, handles); err != nil {
				return err
			}
			if err := renderSummary(out, e); err != nil {
				return err
			}
			return loadErr
		},
	}
}

// loadAll loads paths, or every indexed asset when paths is empty.
func loadAll(ctx context.Context, e *engine.Engine, paths []string, bar *progressBar) ([]string, []resources.Handle, error) {
	if len(paths) == 0 {
		for _, a := range e.Assets().Assets() {
			paths = append(paths, a.Path)
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	bar.Reset(len(paths))
	defer bar.Stop()

	handles, err := e.Resources().LoadBatch(ctx, paths)
	e.RefreshStats()
	return paths, handles, err
}

func renderResources(w io.Writer, e *engine.Engine, paths []string, handles []resources.Handle) error {
	data := pterm.TableData{{"Path", "Type", "Name", "State", "Memory (KB)"}}
	for i, h := range handles {
		r, ok := e.Resources().Resolve(h)
		if !ok {
			data = append(data, []string{paths[i], "-", "-", pterm.Red("failed"), "-"})
			continue
		}
		kb := "-"
		if s, ok := r.(resources.Sizer); ok {
			kb = strconv.FormatUint(s.MemoryUsage()/1024, 10)
		}
		data = append(data, []string{r.Path(), r.Type().String(), r.Name(), r.LoadState().String(), kb})
	}
	return pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithWriter(w).WithData(data).Render()
}

func renderSummary(w io.Writer, e *engine.Engine) error {
	rs := e.Resources()
	data := pterm.TableData{{"Type", "Count", "Memory (KB)", "Standard directory"}}
	for _, s := range rs.Cache().Stats() {
		t, _ := resources.ParseResourceType(s.Type)
		data = append(data, []string{s.Type, strconv.Itoa(s.Count), strconv.FormatUint(s.MemoryKB, 10), rs.GetStandardResourceDirectory(t)})
	}
	data = append(data, []string{"all",
		strconv.Itoa(rs.GetResourceCountByType(resources.ResourceTypeAll)),
		strconv.FormatUint(rs.GetMemoryUsageKB(resources.ResourceTypeAll), 10),
		"",
	})
	if err := pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithWriter(w).WithData(data).Render(); err != nil {
		return err
	}
	hits, misses := e.Assets().FileCacheStats()
	_, err := fmt.Fprintf(w, "\nProject: %s\nFile cache: %d hits, %d misses\n", rs.GetProjectDirectory(), hits, misses)
	return err
}
