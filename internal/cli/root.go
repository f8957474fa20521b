// Package cli wires the recorder commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/config"
	"github.com/ahzs645/screencapture/internal/permission"
)

// Dependencies carries the shared collaborators into the commands.
type Dependencies struct {
	Provider capture.Provider
	Gate     *permission.Gate
	Env      *config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "recorder",
		Short: "Record displays and windows to video files",
		Long:  "Screen capture orchestrator: discovers recordable displays and windows, checks system permissions, and records them to MP4 with optional audio and transcription.",
	}

	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewPermissionCmd(deps))
	rootCmd.AddCommand(NewRecordCmd(deps))

	return rootCmd
}
