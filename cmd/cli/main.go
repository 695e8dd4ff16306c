package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/bankledger/internal/adapter/http/dto"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	baseURL        string
	timeout        time.Duration
	actor          string
	idempotencyKey string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "bankledger-cli",
		Short:        "Bank ledger CLI tool",
		Long:         `A command line interface for interacting with the bank ledger API.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the ledger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.actor, "actor", "", "Actor ID sent with every request")
	rootCmd.PersistentFlags().StringVar(&opts.idempotencyKey, "idempotency-key", "", "Idempotency key for mutating requests")

	rootCmd.AddCommand(
		accountCmd(opts),
		amountCmd(opts, "deposit", "Credit an account"),
		amountCmd(opts, "withdraw", "Debit an account"),
		transferCmd(opts),
		balanceCmd(opts),
		statusCmd(opts, "lock", "Lock an account against balance changes"),
		statusCmd(opts, "unlock", "Unlock a locked account"),
		auditCmd(opts),
		ledgerCmd(opts),
	)

	return rootCmd
}

func accountCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	openCmd := &cobra.Command{
		Use:   "open <name>",
		Short: "Open a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodPost, "/api/v1/accounts", dto.OpenAccountRequest{Name: args[0]})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodGet, accountPath(args[0], ""), nil)
		},
	}

	var (
		status        string
		limit, offset int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if status != "" {
				q.Set("status", status)
			}
			setPage(q, limit, offset)
			return opts.call(cmd, http.MethodGet, withQuery("/api/v1/accounts", q), nil)
		},
	}
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status (active or locked)")
	listCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of accounts")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Number of accounts to skip")

	var entryLimit, entryOffset int
	entriesCmd := &cobra.Command{
		Use:   "entries <id>",
		Short: "List journal entries of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setPage(q, entryLimit, entryOffset)
			return opts.call(cmd, http.MethodGet, withQuery(accountPath(args[0], "entries"), q), nil)
		},
	}
	entriesCmd.Flags().IntVar(&entryLimit, "limit", 0, "Maximum number of entries")
	entriesCmd.Flags().IntVar(&entryOffset, "offset", 0, "Number of entries to skip")

	reconcileCmd := &cobra.Command{
		Use:   "reconcile <id>",
		Short: "Compare an account balance with its journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodGet, accountPath(args[0], "reconcile"), nil)
		},
	}

	cmd.AddCommand(openCmd, getCmd, listCmd, entriesCmd, reconcileCmd)
	return cmd
}

func amountCmd(opts *options, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <account-id> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodPost, accountPath(args[0], action), dto.AmountRequest{Amount: args[1]})
		},
	}
}

func transferCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <from-id> <to-id> <amount>",
		Short: "Move funds between two accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodPost, "/api/v1/transfers", dto.TransferRequest{
				FromAccountID: args[0],
				ToAccountID:   args[1],
				Amount:        args[2],
			})
		},
	}
}

func balanceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show the current balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodGet, accountPath(args[0], "balance"), nil)
		},
	}
}

func statusCmd(opts *options, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <account-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodPost, accountPath(args[0], action), nil)
		},
	}
}

func auditCmd(opts *options) *cobra.Command {
	var (
		actor, operation, account, outcome, since string
		limit, offset                             int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit trail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for key, value := range map[string]string{
				"actor":     actor,
				"operation": operation,
				"account":   account,
				"outcome":   outcome,
				"since":     since,
			} {
				if value != "" {
					q.Set(key, value)
				}
			}
			setPage(q, limit, offset)
			return opts.call(cmd, http.MethodGet, withQuery("/api/v1/audit", q), nil)
		},
	}

	cmd.Flags().StringVar(&actor, "by", "", "Filter by actor ID")
	cmd.Flags().StringVar(&operation, "operation", "", "Filter by operation (deposit, withdraw, transfer, lock, unlock)")
	cmd.Flags().StringVar(&account, "account", "", "Filter by target account")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Filter by outcome (success or failure)")
	cmd.Flags().StringVar(&since, "since", "", "Only entries at or after this RFC3339 time")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of entries")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of entries to skip")

	return cmd
}

func ledgerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodGet, "/api/v1/ledger/consistency", nil)
		},
	}

	operationCmd := &cobra.Command{
		Use:   "operation <operation-id>",
		Short: "List the journal entries written by one operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodGet, "/api/v1/operations/"+url.PathEscape(args[0])+"/entries", nil)
		},
	}

	cmd.AddCommand(consistencyCmd, operationCmd)
	return cmd
}

// call sends one request and prints the response body. A non-2xx response is
// printed too and returned as an error.
func (o *options) call(cmd *cobra.Command, method, path string, body any) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(o.baseURL, "/")+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if o.actor != "" {
		req.Header.Set("X-Actor-ID", o.actor)
	}
	if o.idempotencyKey != "" && method == http.MethodPost {
		req.Header.Set("Idempotency-Key", o.idempotencyKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if len(raw) > 0 {
		if err := printJSON(cmd.OutOrStdout(), raw); err != nil {
			return err
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp.StatusCode, raw)
	}
	return nil
}

func responseError(status int, raw []byte) error {
	var errResp dto.ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error != "" {
		if errResp.Kind != "" {
			return fmt.Errorf("request failed (status %d, %s): %s", status, errResp.Kind, errResp.Error)
		}
		return fmt.Errorf("request failed (status %d): %s", status, errResp.Error)
	}
	return fmt.Errorf("request failed (status %d): %s", status, truncate(string(raw), 200))
}

// printJSON indents a JSON response body; anything else is printed as is.
func printJSON(w io.Writer, raw []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, strings.TrimSpace(string(raw)))
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func accountPath(id, action string) string {
	p := "/api/v1/accounts/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func setPage(q url.Values, limit, offset int) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
