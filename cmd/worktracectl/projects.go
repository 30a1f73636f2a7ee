package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	projectsCmd := &cobra.Command{Use: "projects", Short: "Project operations"}

	// create
	var account, name, color, keywords string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if account == "" || name == "" {
				return fmt.Errorf("--account and --name required")
			}
			payload := map[string]interface{}{"name": name}
			if color != "" {
				payload["color"] = color
			}
			if keywords != "" {
				payload["keywords"] = strings.Split(keywords, ",")
			}
			url := fmt.Sprintf("%s/api/accounts/%s/projects", apiFlag, account)
			data, err := doPostJSON(url, payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	createCmd.Flags().StringVarP(&account, "account", "u", "", "Account ID (required)")
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Project name (required)")
	createCmd.Flags().StringVarP(&color, "color", "c", "", "Hex color, e.g. #4f46e5")
	createCmd.Flags().StringVarP(&keywords, "keywords", "k", "", "Comma-separated auto-tag keywords")
	projectsCmd.AddCommand(createCmd)

	// list
	var listAccount string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List an account's projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listAccount == "" {
				return fmt.Errorf("--account required")
			}
			url := fmt.Sprintf("%s/api/accounts/%s/projects", apiFlag, listAccount)
			data, err := doGet(url)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	listCmd.Flags().StringVarP(&listAccount, "account", "u", "", "Account ID (required)")
	projectsCmd.AddCommand(listCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete PROJECT_ID",
		Short: "Delete a project (documents are detached)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doDelete(fmt.Sprintf("%s/api/projects/%s", apiFlag, args[0]))
		},
	}
	projectsCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(projectsCmd)
}
