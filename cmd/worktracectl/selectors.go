package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	selectorsCmd := &cobra.Command{Use: "selectors", Short: "Selector registry operations"}

	// put
	var account, domain, titleSel, idPattern, urlTemplate string
	putCmd := &cobra.Command{
		Use:   "put",
		Short: "Create or replace the selector for a domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			if account == "" || domain == "" || titleSel == "" {
				return fmt.Errorf("--account, --domain and --title-selector required")
			}
			payload := map[string]interface{}{
				"domain":        domain,
				"titleSelector": titleSel,
			}
			if idPattern != "" {
				payload["docIdPattern"] = idPattern
			}
			if urlTemplate != "" {
				payload["urlTemplate"] = urlTemplate
			}
			url := fmt.Sprintf("%s/api/accounts/%s/selectors", apiFlag, account)
			data, err := doJSON(http.MethodPut, url, payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	putCmd.Flags().StringVarP(&account, "account", "u", "", "Account ID (required)")
	putCmd.Flags().StringVarP(&domain, "domain", "d", "", "Domain, e.g. docs.google.com (required)")
	putCmd.Flags().StringVarP(&titleSel, "title-selector", "t", "", "CSS selector for the page title (required)")
	putCmd.Flags().StringVarP(&idPattern, "doc-id-pattern", "p", "", "Regexp whose first capture group is the document ID")
	putCmd.Flags().StringVarP(&urlTemplate, "url-template", "l", "", "Canonical URL template containing {id}")
	selectorsCmd.AddCommand(putCmd)

	// list
	var listAccount string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List an account's selectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listAccount == "" {
				return fmt.Errorf("--account required")
			}
			url := fmt.Sprintf("%s/api/accounts/%s/selectors", apiFlag, listAccount)
			data, err := doGet(url)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	listCmd.Flags().StringVarP(&listAccount, "account", "u", "", "Account ID (required)")
	selectorsCmd.AddCommand(listCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete SELECTOR_ID",
		Short: "Delete a selector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doDelete(fmt.Sprintf("%s/api/selectors/%s", apiFlag, args[0]))
		},
	}
	selectorsCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(selectorsCmd)
}
