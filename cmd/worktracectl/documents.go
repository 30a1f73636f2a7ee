package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	documentsCmd := &cobra.Command{Use: "documents", Short: "Document operations"}

	// list
	var account, project, domain string
	var unassigned bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if account != "" {
				q.Set("accountId", account)
			}
			if project != "" {
				q.Set("projectId", project)
			}
			if domain != "" {
				q.Set("domain", domain)
			}
			if unassigned {
				q.Set("unassigned", "true")
			}
			u := fmt.Sprintf("%s/api/documents", apiFlag)
			if len(q) > 0 {
				u += "?" + q.Encode()
			}
			data, err := doGet(u)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	listCmd.Flags().StringVarP(&account, "account", "u", "", "Filter by account ID")
	listCmd.Flags().StringVarP(&project, "project", "p", "", "Filter by project ID")
	listCmd.Flags().StringVarP(&domain, "domain", "d", "", "Filter by domain")
	listCmd.Flags().BoolVar(&unassigned, "unassigned", false, "Only documents with no project")
	documentsCmd.AddCommand(listCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get DOCUMENT_ID",
		Short: "Get document by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/documents/%s", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	documentsCmd.AddCommand(getCmd)

	// assign
	var assignProject, tag string
	var detach bool
	assignCmd := &cobra.Command{
		Use:   "assign DOCUMENT_ID",
		Short: "Assign a document to a project, or detach it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{}
			if detach {
				payload["projectId"] = nil
			} else if assignProject != "" {
				payload["projectId"] = assignProject
			}
			if tag != "" {
				payload["tag"] = tag
			}
			url := fmt.Sprintf("%s/api/documents/%s", apiFlag, args[0])
			data, err := doJSON(http.MethodPatch, url, payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	assignCmd.Flags().StringVarP(&assignProject, "project", "p", "", "Project ID to assign")
	assignCmd.Flags().StringVarP(&tag, "tag", "t", "", "Free-form tag")
	assignCmd.Flags().BoolVar(&detach, "detach", false, "Remove the project assignment")
	documentsCmd.AddCommand(assignCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete DOCUMENT_ID",
		Short: "Delete a document and its heartbeats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doDelete(fmt.Sprintf("%s/api/documents/%s", apiFlag, args[0]))
		},
	}
	documentsCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(documentsCmd)
}
