package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/renderer"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List texture formats and the file extensions of every resource type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			formats := pterm.TableData{{"Format", "Channels", "Bits/channel", "Bytes/texel", "Device format"}}
			for _, f := range renderer.Formats() {
				formats = append(formats, []string{
					f.String(),
					strconv.FormatUint(uint64(f.Channels()), 10),
					strconv.FormatUint(uint64(f.BitsPerChannel()), 10),
					strconv.FormatUint(uint64(f.BytesPerTexel()), 10),
					fmt.Sprint(f.DeviceFormat()),
				})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithWriter(out).WithData(formats).Render(); err != nil {
				return err
			}

			types := pterm.TableData{{"Resource type", "Extensions"}}
			for _, rt := range resources.ResourceTypes() {
				types = append(types, []string{rt.String(), strings.Join(assets.Extensions(rt), " ")})
			}
			return pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithWriter(out).WithData(types).Render()
		},
	}
}
