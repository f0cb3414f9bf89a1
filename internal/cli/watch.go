package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terra-clan/jury-engine/internal/notify"
)

func (a *app) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow lifecycle events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return a.backend.Watch(cmd.Context(), func(msg notify.Message) {
				switch msg.Type {
				case notify.TypeInvalidated:
					var inv notify.Invalidation
					if err := json.Unmarshal(msg.Payload, &inv); err != nil {
						a.logger.Warn("bad invalidation payload", "error", err)
						return
					}
					if inv.ID != "" {
						fmt.Fprintf(out, "changed: %s %s\n", inv.Scope, inv.ID)
					} else {
						fmt.Fprintf(out, "changed: %s\n", inv.Scope)
					}
				case notify.TypeRoundOverdue:
					var od notify.RoundOverdue
					if err := json.Unmarshal(msg.Payload, &od); err != nil {
						a.logger.Warn("bad overdue payload", "error", err)
						return
					}
					fmt.Fprintf(out, "overdue: round %s in campaign %s\n", od.RoundID, od.CampaignID)
				default:
					a.logger.Debug("ignoring event", "type", msg.Type)
				}
			})
		},
	}
}
