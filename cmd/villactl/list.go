package main

import (
	"github.com/spf13/cobra"

	"villa_dnft/internal/domain"
)

var listOwner string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the villas an owner holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, refresh, err := services()
		if err != nil {
			return err
		}
		owner := listOwner
		if owner == "" {
			owner = flagSender
		}
		snap := refresh.Refresh(cmd.Context(), owner)

		type row struct {
			domain.Villa
			ConditionLabel string `json:"condition_label"`
		}
		rows := make([]row, 0, len(snap.Villas))
		for _, v := range snap.Villas {
			rows = append(rows, row{Villa: v, ConditionLabel: domain.ConditionLabel(v.ConditionScore)})
		}
		return printJSON(map[string]any{"owner": snap.Owner, "stale": snap.Stale, "villas": rows})
	},
}

func init() {
	listCmd.Flags().StringVar(&listOwner, "owner", "", "owner address")
}
