package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	reportCmd := &cobra.Command{Use: "report", Short: "Reporting"}

	var account, from, to string
	dailyCmd := &cobra.Command{
		Use:   "daily",
		Short: "Per-day minute totals per document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if account == "" {
				return fmt.Errorf("--account required")
			}
			q := url.Values{}
			if from != "" {
				q.Set("from", from)
			}
			if to != "" {
				q.Set("to", to)
			}
			u := fmt.Sprintf("%s/api/accounts/%s/reports/daily", apiFlag, account)
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
	dailyCmd.Flags().StringVarP(&account, "account", "u", "", "Account ID (required)")
	dailyCmd.Flags().StringVarP(&from, "from", "f", "", "Start date (YYYY-MM-DD)")
	dailyCmd.Flags().StringVarP(&to, "to", "t", "", "End date (YYYY-MM-DD)")
	reportCmd.AddCommand(dailyCmd)

	rootCmd.AddCommand(reportCmd)
}
