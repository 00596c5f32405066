package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Receiver string // optional - filter to one contract
}

// TxRecord is one executed call as the trace command reports it.
type TxRecord struct {
	Seq      int64    `json:"seq"`
	Hash     string   `json:"hash"`
	Signer   string   `json:"signer"`
	Receiver string   `json:"receiver"`
	Function string   `json:"function"`
	Args     any      `json:"args,omitempty"`
	Deposit  string   `json:"deposit,omitempty"`
	GasBurnt string   `json:"gas_burnt"`
	Nonce    int64    `json:"nonce"`
	Success  bool     `json:"success"`
	Failure  string   `json:"failure,omitempty"`
	Result   any      `json:"result,omitempty"`
	Logs     []string `json:"logs,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Receiver     string     `json:"receiver,omitempty"`
	Transactions []TxRecord `json:"transactions"`
	Stats        TraceStats `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List the calls recorded in a ledger",
		Long: `List every call recorded in a ledger written by "run --db", in
execution order, with its outcome, return value and logs.

Examples:
  chainharness trace --db ./ledger.db
  chainharness trace --db ./ledger.db --receiver token.dev-0190c1f2.test
  chainharness trace --db ./ledger.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Receiver, "receiver", "", "only show calls to this account")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openLedger(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	txs, err := st.ListTransactions(cmd.Context(), opts.Receiver)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list transactions", err)
	}

	result := TraceResult{
		Receiver:     opts.Receiver,
		Transactions: make([]TxRecord, 0, len(txs)),
	}
	for _, tx := range txs {
		result.Transactions = append(result.Transactions, toTxRecord(tx))
		if tx.Success {
			result.Stats.Succeeded++
		} else {
			result.Stats.Failed++
		}
	}
	result.Stats.Total = len(txs)

	if formatter.JSON() {
		return formatter.Success(result)
	}
	printTrace(formatter, result)
	return nil
}

// openLedger opens an existing ledger file. store.Open would create a
// missing file, which is never what an inspection command wants.
func openLedger(formatter *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		msg := fmt.Sprintf("ledger not found: %s", path)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return nil, NewExitError(ExitCommandError, msg)
	}
	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLedger, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	return st, nil
}

func toTxRecord(tx store.Transaction) TxRecord {
	rec := TxRecord{
		Seq:      tx.Seq,
		Hash:     tx.Hash,
		Signer:   tx.Signer,
		Receiver: tx.Receiver,
		Function: tx.Function,
		GasBurnt: tx.GasBurnt.String(),
		Nonce:    tx.Nonce,
		Success:  tx.Success,
		Failure:  tx.Failure,
		Logs:     tx.Logs,
	}
	if len(tx.Args) > 0 {
		rec.Args = ir.ToAny(tx.Args)
	}
	if !tx.Deposit.IsZero() {
		rec.Deposit = tx.Deposit.HumanString()
	}
	if tx.Result != nil {
		rec.Result = ir.ToAny(tx.Result)
	}
	return rec
}

func printTrace(formatter *OutputFormatter, result TraceResult) {
	w := formatter.Writer
	if len(result.Transactions) == 0 {
		fmt.Fprintln(w, "No transactions recorded.")
		return
	}

	fmt.Fprintln(w, "Transactions:")
	for _, tx := range result.Transactions {
		status := "✓"
		if !tx.Success {
			status = "✗"
		}
		fmt.Fprintf(w, "  [%d] %s %s -> %s.%s", tx.Seq, status, tx.Signer, tx.Receiver, tx.Function)
		if tx.Deposit != "" {
			fmt.Fprintf(w, " (deposit %s)", tx.Deposit)
		}
		fmt.Fprintln(w)
		if tx.Failure != "" {
			fmt.Fprintf(w, "      failure: %s\n", tx.Failure)
		}
		for _, line := range tx.Logs {
			fmt.Fprintf(w, "      log: %s\n", line)
		}
		if formatter.Verbose {
			fmt.Fprintf(w, "      hash: %s, nonce %d, gas %s\n", tx.Hash, tx.Nonce, tx.GasBurnt)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d call(s), %d succeeded, %d failed\n",
		result.Stats.Total, result.Stats.Succeeded, result.Stats.Failed)
}
