package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
	atFlag  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ledgercal-cli",
		Short: "LedgerCal CLI tool",
		Long:  `A command line interface for interacting with the LedgerCal API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the LedgerCal API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	networthCmd := &cobra.Command{
		Use:   "networth",
		Short: "Net worth across all accounts",
		Run: func(cmd *cobra.Command, args []string) {
			fetchAndPrint(http.MethodGet, withAt("/api/v1/networth"))
		},
	}
	networthCmd.Flags().StringVar(&atFlag, "at", "", "Point in time (RFC3339 or YYYY-MM-DD)")

	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts",
		Run: func(cmd *cobra.Command, args []string) {
			listAccounts()
		},
	}

	balanceCmd := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Account balance as of a point in time",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fetchAndPrint(http.MethodGet, withAt("/api/v1/accounts/"+url.PathEscape(args[0])+"/balance"))
		},
	}
	balanceCmd.Flags().StringVar(&atFlag, "at", "", "Point in time (RFC3339 or YYYY-MM-DD)")

	calendarCmd := &cobra.Command{
		Use:   "calendar",
		Short: "Calendar queries",
	}

	dayCmd := &cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "Transactions and net delta for a day",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fetchAndPrint(http.MethodGet, "/api/v1/calendar/day/"+url.PathEscape(args[0]))
		},
	}

	monthCmd := &cobra.Command{
		Use:   "month <YYYY-MM>",
		Short: "Month summary with start and end balances",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fetchAndPrint(http.MethodGet, "/api/v1/calendar/month/"+url.PathEscape(args[0]))
		},
	}

	calendarCmd.AddCommand(dayCmd, monthCmd)

	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check snapshot consistency",
		Run: func(cmd *cobra.Command, args []string) {
			verifySnapshot()
		},
	}

	ledgerCmd.AddCommand(verifyCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Current snapshot metadata",
		Run: func(cmd *cobra.Command, args []string) {
			fetchAndPrint(http.MethodGet, "/api/v1/snapshot")
		},
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Force a snapshot refresh",
		Run: func(cmd *cobra.Command, args []string) {
			fetchAndPrint(http.MethodPost, "/api/v1/snapshot/refresh")
		},
	}

	snapshotCmd.AddCommand(refreshCmd)

	rootCmd.AddCommand(networthCmd, accountsCmd, balanceCmd, calendarCmd, ledgerCmd, snapshotCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func withAt(path string) string {
	if atFlag == "" {
		return path
	}
	return path + "?at=" + url.QueryEscape(atFlag)
}

func request(method, path string) ([]byte, int, error) {
	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequest(method, baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func fetchAndPrint(method, path string) {
	body, status, err := request(method, path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}

	if status != http.StatusOK && status != http.StatusAccepted {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", status, string(body))
		os.Exit(1)
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	printJSON(parsed)
}

func listAccounts() {
	body, status, err := request(http.MethodGet, "/api/v1/accounts/")
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}

	if status != http.StatusOK {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", status, string(body))
		os.Exit(1)
	}

	var accounts []struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		Type           string `json:"type"`
		Currency       string `json:"currency"`
		CurrentBalance string `json:"current_balance"`
	}
	if err := json.Unmarshal(body, &accounts); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-28s %-24s %-6s %-4s %s\n", "ID", "NAME", "TYPE", "CUR", "BALANCE")
	for _, a := range accounts {
		fmt.Printf("%-28s %-24s %-6s %-4s %s\n",
			truncate(a.ID, 28), truncate(a.Name, 24), a.Type, a.Currency, a.CurrentBalance)
	}
}

func verifySnapshot() {
	body, status, err := request(http.MethodGet, "/api/v1/ledger/verify")
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}

	if status != http.StatusOK {
		fmt.Printf("Verification FAILED (Status: %d)\nResponse: %s\n", status, string(body))
		os.Exit(1)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	if consistent, ok := result["consistent"].(bool); ok && consistent {
		fmt.Printf("Verification PASSED\n")
	} else {
		fmt.Printf("Verification found drift\n")
	}
	printJSON(result)
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Failed to render response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
