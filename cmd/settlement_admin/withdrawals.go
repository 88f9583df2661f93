package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/pix-settlement-ledger/internal/domain/shared"
	"github.com/pix-settlement-ledger/internal/domain/withdrawal"
	"github.com/spf13/cobra"
)

func withdrawalsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdrawals",
		Short: "Review withdrawals waiting for manual approval",
	}
	cmd.AddCommand(listWithdrawalsCmd(get))
	cmd.AddCommand(approveWithdrawalCmd(get))
	cmd.AddCommand(rejectWithdrawalCmd(get))
	return cmd
}

func listWithdrawalsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List withdrawals by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			items, total, err := get().approvals.ListWithdrawals(cmd.Context(), withdrawal.Status(status), limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSER\tAMOUNT\tFEE\tNET\tKEY\tSTATUS\tCREATED")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s:%s\t%s\t%s\n",
					item.ID,
					item.UserID,
					shared.FromMinorUnits(item.Amount).StringFixed(2),
					shared.FromMinorUnits(item.FeeAmount).StringFixed(2),
					shared.FromMinorUnits(item.NetAmount).StringFixed(2),
					item.KeyType, item.PixKey,
					item.Status,
					item.CreatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d\n", len(items), total)
			return nil
		},
	}
	cmd.Flags().String("status", string(withdrawal.StatusPendingApproval), "Withdrawal status to list")
	cmd.Flags().Int("limit", 20, "Maximum rows")
	cmd.Flags().Int("offset", 0, "Rows to skip")
	return cmd
}

func approveWithdrawalCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve [withdrawal-id]",
		Short: "Dispatch a pending withdrawal to the provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args, "withdrawal")
			if err != nil {
				return err
			}
			adminID, err := adminIDFlag(cmd)
			if err != nil {
				return err
			}

			w, err := get().approvals.ApproveWithdrawal(cmd.Context(), id, adminID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "withdrawal %s %s\n", w.ID, w.Status)
			return nil
		},
	}
	cmd.Flags().String("admin-id", "", "User id of the approving admin")
	return cmd
}

func rejectWithdrawalCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject [withdrawal-id]",
		Short: "Reject a pending withdrawal and refund the reserved amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idArg(args, "withdrawal")
			if err != nil {
				return err
			}
			adminID, err := adminIDFlag(cmd)
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")

			w, err := get().approvals.RejectWithdrawal(cmd.Context(), id, reason, adminID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "withdrawal %s %s\n", w.ID, w.Status)
			return nil
		},
	}
	cmd.Flags().String("admin-id", "", "User id of the rejecting admin")
	cmd.Flags().String("reason", "", "Reason recorded on the withdrawal")
	return cmd
}
