package scenario

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/chainharness/internal/chain"
	"github.com/roach88/chainharness/internal/units"
)

// registration is one pending account or contract.
type registration struct {
	key      string
	balance  units.Balance
	contract bool
	artifact string
}

func (r registration) kind() string {
	if r.contract {
		return "contract"
	}
	return "account"
}

// Builder is the provisioning ledger: it records the accounts and contracts
// a test needs and creates them on the network in one Provision call.
//
// Keys share one namespace across accounts and contracts. Provisioning
// follows declaration order across both kinds.
type Builder struct {
	network  chain.Network
	logger   *slog.Logger
	readFile func(path string) ([]byte, error)

	entries  []registration
	index    map[string]int
	consumed bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger used for provisioning and for the resulting
// State. The default discards everything.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithArtifactReader replaces os.ReadFile for loading contract artifacts.
func WithArtifactReader(read func(path string) ([]byte, error)) BuilderOption {
	return func(b *Builder) {
		if read != nil {
			b.readFile = read
		}
	}
}

// NewBuilder creates an empty builder for the given network.
func NewBuilder(network chain.Network, opts ...BuilderOption) *Builder {
	b := &Builder{
		network:  network,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		readFile: os.ReadFile,
		index:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RegisterAccount records an account to create with the given balance.
func (b *Builder) RegisterAccount(key string, balance units.Balance) error {
	return b.register("register account", registration{key: key, balance: balance})
}

// RegisterContract records a contract: an account funded with balance that
// gets the artifact at path deployed to it.
func (b *Builder) RegisterContract(key, artifactPath string, balance units.Balance) error {
	return b.register("register contract", registration{
		key:      key,
		balance:  balance,
		contract: true,
		artifact: artifactPath,
	})
}

func (b *Builder) register(op string, r registration) error {
	if b.consumed {
		return ErrBuilderConsumed
	}
	if r.key == "" {
		return &ConfigError{Op: op, Key: r.key, Err: ErrEmptyKey}
	}
	if i, ok := b.index[r.key]; ok {
		return &ConfigError{Op: op, Key: r.key, Existing: b.entries[i].kind(), Err: ErrDuplicateKey}
	}

	b.index[r.key] = len(b.entries)
	b.entries = append(b.entries, r)
	return nil
}

// Accounts returns the registered account keys in declaration order.
func (b *Builder) Accounts() []string {
	return b.keys(false)
}

// Contracts returns the registered contract keys in declaration order.
func (b *Builder) Contracts() []string {
	return b.keys(true)
}

func (b *Builder) keys(contracts bool) []string {
	var out []string
	for _, r := range b.entries {
		if r.contract == contracts {
			out = append(out, r.key)
		}
	}
	return out
}

// Len returns the number of registrations.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Provision connects to the network, creates a funded root account and then
// every registered account and contract under it, in declaration order.
//
// It is all-or-nothing: on any failure the connection is closed and a
// *ProvisionError naming the key and phase is returned. The builder cannot
// be reused afterwards, whatever the outcome.
func (b *Builder) Provision(ctx context.Context) (*State, error) {
	if b.consumed {
		return nil, ErrBuilderConsumed
	}
	b.consumed = true

	conn, err := b.network.Connect(ctx)
	if err != nil {
		return nil, &ProvisionError{Phase: PhaseConnect, Err: err}
	}

	st, err := b.provision(ctx, conn)
	if err != nil {
		if cerr := conn.Close(); cerr != nil {
			b.logger.Warn("close connection after failed provisioning", "error", cerr)
		}
		return nil, err
	}
	return st, nil
}

func (b *Builder) provision(ctx context.Context, conn chain.Conn) (*State, error) {
	root, err := conn.CreateRootAccount(ctx)
	if err != nil {
		return nil, &ProvisionError{Phase: PhaseRoot, Err: err}
	}
	b.logger.Debug("root account created", "account", root.ID)

	st := newState(conn, root, b.logger)
	for _, r := range b.entries {
		if err := ctx.Err(); err != nil {
			return nil, &ProvisionError{Phase: PhaseCreate, Key: r.key, Err: err}
		}

		acc, err := conn.CreateSubaccount(ctx, root, r.key, r.balance)
		if err != nil {
			return nil, &ProvisionError{Phase: PhaseCreate, Key: r.key, Err: err}
		}

		if !r.contract {
			st.addAccount(r.key, acc)
			b.logger.Debug("account created", "key", r.key, "account", acc.ID, "balance", r.balance)
			continue
		}

		code, err := b.readFile(r.artifact)
		if err != nil {
			return nil, &ProvisionError{Phase: PhaseReadArtifact, Key: r.key, Err: err}
		}
		c, err := conn.Deploy(ctx, acc, code)
		if err != nil {
			return nil, &ProvisionError{Phase: PhaseDeploy, Key: r.key, Err: err}
		}
		st.addContract(r.key, c)
		b.logger.Debug("contract deployed", "key", r.key, "account", c.ID, "code_hash", c.CodeHash)
	}

	return st, nil
}
