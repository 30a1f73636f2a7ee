package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	accountsCmd := &cobra.Command{Use: "accounts", Short: "Account operations"}

	// create
	var email string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account and print its API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email required")
			}
			url := fmt.Sprintf("%s/api/accounts", apiFlag)
			data, err := doPostJSON(url, map[string]interface{}{"email": email})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	createCmd.Flags().StringVarP(&email, "email", "e", "", "Account email (required)")
	_ = createCmd.MarkFlagRequired("email")
	accountsCmd.AddCommand(createCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get ACCOUNT_ID",
		Short: "Get account by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/api/accounts/%s", apiFlag, args[0])
			data, err := doGet(url)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	accountsCmd.AddCommand(getCmd)

	// rotate-key
	rotateCmd := &cobra.Command{
		Use:   "rotate-key ACCOUNT_ID",
		Short: "Issue a new API key, invalidating the old one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/api/accounts/%s/api-key", apiFlag, args[0])
			data, err := doJSON(http.MethodPost, url, nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	accountsCmd.AddCommand(rotateCmd)

	rootCmd.AddCommand(accountsCmd)
}
