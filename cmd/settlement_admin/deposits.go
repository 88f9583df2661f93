package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func depositsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposits",
		Short: "Operate on deposits",
	}
	cmd.AddCommand(resolveRetainedCmd(get))
	return cmd
}

func resolveRetainedCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve-retained [deposit-id]",
		Short: "Confirm or fail a deposit the provider retained",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args, "deposit")
			if err != nil {
				return err
			}
			adminID, err := adminIDFlag(cmd)
			if err != nil {
				return err
			}
			action, _ := cmd.Flags().GetString("action")
			if action != "confirm" && action != "fail" {
				return fmt.Errorf("--action must be confirm or fail, got %q", action)
			}

			d, err := get().approvals.ResolveRetainedDeposit(cmd.Context(), id, action == "confirm", adminID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deposit %s %s\n", d.ID, d.Status)
			return nil
		},
	}
	cmd.Flags().String("admin-id", "", "User id of the resolving admin")
	cmd.Flags().String("action", "", "confirm or fail")
	return cmd
}
