package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pscheid92/chatledger/internal/ledger"
)

func newRepairCmd(open storeOpener) *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Clear duplicate first/peak flags in stored records",
		Long:  "repair walks every record of one group, or of all groups, and persists records whose first-actor or peak-producer flag is set on more than one contributor.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stores, _, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			groups := []string{group}
			if group == "" {
				groups, err = stores.Records.ListGroups(cmd.Context())
				if err != nil {
					return fmt.Errorf("list groups: %w", err)
				}
			}

			aggregator := ledger.NewAggregator(stores.Records)
			total := 0
			for _, g := range groups {
				repaired, err := aggregator.Repair(cmd.Context(), g)
				if err != nil {
					return fmt.Errorf("repair group %s: %w", g, err)
				}
				total += repaired
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "repaired %d records in %d groups\n", total, len(groups))
			return err
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "only repair this group")
	return cmd
}
