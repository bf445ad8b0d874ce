package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pronovic/vplan/internal/model"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the provider account",
}

var accountSetCmd = &cobra.Command{
	Use:   "set <pat-token>",
	Short: "Store or replace the provider PAT token",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return newAPIClient().send(http.MethodPost, "/account", model.Account{PatToken: args[0]})
	},
}

var accountShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored account",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		var account model.Account
		if err := newAPIClient().get("/account", &account); err != nil {
			return err
		}
		fmt.Printf("pat_token: %s\n", account.PatToken)
		return nil
	},
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the stored account, disabling every plan",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return newAPIClient().send(http.MethodDelete, "/account", nil)
	},
}

func init() {
	accountCmd.AddCommand(accountSetCmd)
	accountCmd.AddCommand(accountShowCmd)
	accountCmd.AddCommand(accountDeleteCmd)
}
