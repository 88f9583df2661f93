package main

import (
	"fmt"

	"github.com/pix-settlement-ledger/internal/domain/fee"
	"github.com/spf13/cobra"
)

func feesCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Inspect and change the global withdrawal fee",
	}
	cmd.AddCommand(showFeesCmd(get))
	cmd.AddCommand(setFeesCmd(get))
	return cmd
}

func showFeesCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the fee applied to users without an override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := get().fees.Resolve(cmd.Context(), nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "withdraw fee: %s\n", policy)
			return nil
		},
	}
}

func setFeesCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the global withdrawal fee in the settings table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, _ := cmd.Flags().GetString("percent")
			fixed, _ := cmd.Flags().GetString("fixed")

			policy, err := fee.ParsePolicy(percent, fixed)
			if err != nil {
				return err
			}
			if policy.Percent.IsNegative() || policy.Fixed.IsNegative() {
				return fmt.Errorf("fee components must not be negative, got %s", policy)
			}

			store := get().settings
			if err := store.Set(cmd.Context(), fee.SettingWithdrawPercent, policy.Percent.String()); err != nil {
				return err
			}
			if err := store.Set(cmd.Context(), fee.SettingWithdrawFixed, policy.Fixed.String()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "withdraw fee: %s\n", policy)
			return nil
		},
	}
	cmd.Flags().String("percent", "", "Percentage of the gross amount, e.g. 8")
	cmd.Flags().String("fixed", "", "Fixed amount in major units, e.g. 2.00")
	_ = cmd.MarkFlagRequired("percent")
	_ = cmd.MarkFlagRequired("fixed")
	return cmd
}
