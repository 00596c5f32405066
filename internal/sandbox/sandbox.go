package sandbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/holiman/uint256"

	"github.com/roach88/chainharness/internal/chain"
	"github.com/roach88/chainharness/internal/compiler"
	"github.com/roach88/chainharness/internal/contract"
	"github.com/roach88/chainharness/internal/store"
	"github.com/roach88/chainharness/internal/units"
)

// Defaults for a new Sandbox.
var (
	DefaultRootBalance = units.Near(1000)
	DefaultCallGas     = units.Tgas(5)
	DefaultGasBudget   = units.Tgas(30)
)

// Sandbox is an in-process chain.Network backed by a store.Store.
type Sandbox struct {
	store  *store.Store
	names  NameGenerator
	logger *slog.Logger

	rootBalance units.Balance
	callGas     units.Gas
	gasBudget   units.Gas
	gasPrice    units.Balance // yocto per gas unit

	mu       sync.Mutex
	programs map[string]*contract.Program // by code hash
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithNameGenerator replaces the UUIDv7 generator for root account names.
func WithNameGenerator(g NameGenerator) Option {
	return func(s *Sandbox) { s.names = g }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sandbox) { s.logger = l }
}

// WithRootBalance sets the genesis funding of each root account.
func WithRootBalance(b units.Balance) Option {
	return func(s *Sandbox) { s.rootBalance = b }
}

// WithCallGas sets the flat gas burnt by every call.
func WithCallGas(g units.Gas) Option {
	return func(s *Sandbox) { s.callGas = g }
}

// WithGasPrice sets the price of one gas unit in yocto. The default is
// zero, so balances only move by deposits.
func WithGasPrice(p units.Balance) Option {
	return func(s *Sandbox) { s.gasPrice = p }
}

// New creates a sandbox on an open store. The caller keeps ownership of the
// store.
func New(st *store.Store, opts ...Option) *Sandbox {
	s := &Sandbox{
		store:       st,
		names:       UUIDv7Generator{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		rootBalance: DefaultRootBalance,
		callGas:     DefaultCallGas,
		gasBudget:   DefaultGasBudget,
		programs:    make(map[string]*contract.Program),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the ledger the sandbox writes to.
func (s *Sandbox) Store() *store.Store {
	return s.store
}

// Connect implements chain.Network.
func (s *Sandbox) Connect(ctx context.Context) (chain.Conn, error) {
	if err := s.store.DB().PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connect sandbox: %w", err)
	}
	return &conn{sb: s}, nil
}

// gasCost converts burnt gas into yocto at the configured price.
func (s *Sandbox) gasCost(burnt units.Gas) (units.Balance, error) {
	if s.gasPrice.IsZero() || burnt == 0 {
		return units.Balance{}, nil
	}
	cost, overflow := new(uint256.Int).MulOverflow(s.gasPrice.Int(), uint256.NewInt(uint64(burnt)))
	if overflow {
		return units.Balance{}, units.ErrOverflow
	}
	return units.FromInt(cost), nil
}

// compile compiles and validates an artifact. Programs are cached by code
// hash.
func (s *Sandbox) compile(hash string, code []byte) (*contract.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.programs[hash]; ok {
		return p, nil
	}

	p, err := compiler.Compile(hash+".cue", code)
	if err != nil {
		return nil, err
	}

	var result *multierror.Error
	for _, verr := range compiler.Validate(p) {
		result = multierror.Append(result, verr)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	s.programs[hash] = p
	return p, nil
}

// program loads the program deployed under hash.
func (s *Sandbox) program(ctx context.Context, hash string) (*contract.Program, error) {
	s.mu.Lock()
	p, ok := s.programs[hash]
	s.mu.Unlock()
	if ok {
		return p, nil
	}

	code, err := s.store.GetCode(ctx, hash)
	if err != nil {
		return nil, err
	}
	return s.compile(hash, code)
}
