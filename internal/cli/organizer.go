package cli

import (
	"github.com/spf13/cobra"

	"github.com/terra-clan/jury-engine/internal/jury"
)

func (a *app) organizerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organizer",
		Short: "Manage organizers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <username>",
		Short: "Grant organizer rights to a user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return jury.NewOrganizerService(a.backend, a.bus, a.logger).AddOrganizer(cmd.Context(), args)
		},
	})

	return cmd
}
