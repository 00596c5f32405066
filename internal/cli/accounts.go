package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AccountsOptions holds flags for the accounts command.
type AccountsOptions struct {
	*RootOptions
	Database string
}

// AccountRecord is one account as the accounts command reports it.
type AccountRecord struct {
	ID       string `json:"id"`
	Parent   string `json:"parent,omitempty"`
	Balance  string `json:"balance"`
	CodeHash string `json:"code_hash,omitempty"`
	Nonce    int64  `json:"nonce"`
}

// NewAccountsCommand creates the accounts command.
func NewAccountsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AccountsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the accounts in a ledger",
		Long: `List every account in a ledger written by "run --db", in creation
order, with its balance and deployed code hash.

Example:
  chainharness accounts --db ./ledger.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccounts(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runAccounts(opts *AccountsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openLedger(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	accounts, err := st.ListAccounts(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list accounts", err)
	}

	records := make([]AccountRecord, 0, len(accounts))
	for _, a := range accounts {
		records = append(records, AccountRecord{
			ID:       a.ID,
			Parent:   a.Parent,
			Balance:  a.Balance.HumanString(),
			CodeHash: a.CodeHash,
			Nonce:    a.Nonce,
		})
	}

	if formatter.JSON() {
		return formatter.Success(records)
	}

	w := formatter.Writer
	if len(records) == 0 {
		fmt.Fprintln(w, "No accounts.")
		return nil
	}
	for _, a := range records {
		line := fmt.Sprintf("%s  %s", a.ID, a.Balance)
		if a.CodeHash != "" {
			line += "  code " + shortHash(a.CodeHash)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
