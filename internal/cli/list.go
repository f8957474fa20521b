package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ahzs645/screencapture/internal/catalog"
)

// NewListCmd enumerates recordable sources.
func NewListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recordable displays and windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.New(deps.Provider)
			sources, err := cat.Discover(context.Background(), deps.Env.DiscoveryTimeout)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tNAME\tSIZE")
			for _, s := range sources {
				size := ""
				if s.PixelWidth > 0 {
					size = fmt.Sprintf("%dx%d", s.PixelWidth, s.PixelHeight)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Kind, s.DisplayName, size)
			}
			return w.Flush()
		},
	}
}
