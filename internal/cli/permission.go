package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPermissionCmd reports and optionally requests recording permission.
func NewPermissionCmd(deps *Dependencies) *cobra.Command {
	var request bool

	cmd := &cobra.Command{
		Use:   "permission",
		Short: "Show screen recording permission status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if request {
				state := deps.Gate.Request(cmd.Context())
				if !state.ScreenRecordingGranted {
					fmt.Println("permission still not granted; a restart may be required after enabling it")
				}
			}
			fmt.Print(deps.Gate.StatusReport())
			return nil
		},
	}

	cmd.Flags().BoolVar(&request, "request", false, "Trigger the OS permission prompt if not yet granted")
	return cmd
}
