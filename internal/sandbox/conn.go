package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/chainharness/internal/chain"
	"github.com/roach88/chainharness/internal/contract"
	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/store"
	"github.com/roach88/chainharness/internal/units"
)

// ErrClosed is returned by every method of a closed connection.
var ErrClosed = errors.New("sandbox connection closed")

// conn is a chain.Conn bound to one Sandbox.
type conn struct {
	sb     *Sandbox
	closed bool
}

func (c *conn) check(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (c *conn) CreateRootAccount(ctx context.Context) (chain.Account, error) {
	if err := c.check(ctx); err != nil {
		return chain.Account{}, err
	}

	id := rootAccountID(c.sb.names)
	if err := ValidateAccountID(id); err != nil {
		return chain.Account{}, err
	}
	if _, err := c.sb.store.CreateAccount(ctx, id, "", c.sb.rootBalance); err != nil {
		return chain.Account{}, err
	}

	c.sb.logger.Debug("root account created", "account", id, "balance", c.sb.rootBalance)
	return chain.Account{ID: chain.AccountID(id)}, nil
}

func (c *conn) CreateSubaccount(ctx context.Context, parent chain.Account, name string, balance units.Balance) (chain.Account, error) {
	if err := c.check(ctx); err != nil {
		return chain.Account{}, err
	}
	if err := validateSubaccountName(name); err != nil {
		return chain.Account{}, err
	}

	id := name + "." + string(parent.ID)
	if err := ValidateAccountID(id); err != nil {
		return chain.Account{}, err
	}
	if _, err := c.sb.store.CreateAccount(ctx, id, string(parent.ID), balance); err != nil {
		return chain.Account{}, err
	}

	c.sb.logger.Debug("account created", "account", id, "parent", parent.ID, "balance", balance)
	return chain.Account{ID: chain.AccountID(id)}, nil
}

func (c *conn) Deploy(ctx context.Context, account chain.Account, code []byte) (chain.Contract, error) {
	if err := c.check(ctx); err != nil {
		return chain.Contract{}, err
	}

	hash := ir.CodeHash(code)
	p, err := c.sb.compile(hash, code)
	if err != nil {
		return chain.Contract{}, fmt.Errorf("deploy to %s: %w", account.ID, err)
	}
	if err := c.sb.store.SetCode(ctx, string(account.ID), code, hash, p.Storage); err != nil {
		return chain.Contract{}, fmt.Errorf("deploy to %s: %w", account.ID, err)
	}

	c.sb.logger.Debug("contract deployed", "account", account.ID, "program", p.Name, "code_hash", hash)
	return chain.Contract{ID: account.ID, CodeHash: hash}, nil
}

func (c *conn) Call(ctx context.Context, req chain.CallRequest) (*chain.CallOutcome, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	signer, err := c.sb.store.GetAccount(ctx, string(req.Signer))
	if err != nil {
		return nil, fmt.Errorf("call %s: signer: %w", req.Function, err)
	}
	receiver, err := c.sb.store.GetAccount(ctx, string(req.Receiver))
	if err != nil {
		return nil, fmt.Errorf("call %s: receiver: %w", req.Function, err)
	}

	budget := req.Gas
	if budget == 0 {
		budget = c.sb.gasBudget
	}

	// Arguments that are not a JSON object still get recorded, as {}.
	args, argsErr := decodeArgs(req.Args)

	nonce := signer.Nonce + 1
	hash, err := ir.TxHash(signer.ID, receiver.ID, req.Function, args, nonce)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", req.Function, err)
	}

	t := store.Transaction{
		Hash:     hash,
		Signer:   signer.ID,
		Receiver: receiver.ID,
		Function: req.Function,
		Args:     args,
		Deposit:  req.Deposit,
		Gas:      budget,
		Nonce:    nonce,
	}

	var writes ir.Object
	burnt := c.sb.callGas
	switch {
	case budget < c.sb.callGas:
		burnt = budget
		t.Failure = fmt.Sprintf("exceeded the prepaid gas: %s < %s", budget, c.sb.callGas)
	case argsErr != nil:
		t.Failure = argsErr.Error()
	case receiver.CodeHash == "":
		t.Failure = fmt.Sprintf("account %s has no contract code", receiver.ID)
	default:
		eff, err := c.execute(ctx, receiver, signer.ID, req, args)
		switch {
		case err == nil:
			t.Success = true
			t.Result = eff.Return
			t.Logs = eff.Logs
			writes = eff.Writes
		case contract.IsFailure(err), errors.Is(err, contract.ErrUnknownFunction), errors.Is(err, contract.ErrNotCall):
			t.Failure = err.Error()
		default:
			return nil, fmt.Errorf("call %s: %w", req.Function, err)
		}
	}
	t.GasBurnt = burnt

	cost, err := c.sb.gasCost(burnt)
	if err != nil {
		return nil, fmt.Errorf("call %s: gas cost: %w", req.Function, err)
	}

	t, err = c.sb.store.CommitCall(ctx, store.CallCommit{Tx: t, GasCost: cost, Writes: writes})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", req.Function, err)
	}

	c.sb.logger.Debug("call executed",
		"tx", t.Hash,
		"signer", t.Signer,
		"receiver", t.Receiver,
		"function", t.Function,
		"success", t.Success,
	)
	return callOutcome(t)
}

func (c *conn) execute(ctx context.Context, receiver store.Account, signer string, req chain.CallRequest, args ir.Object) (*contract.Effect, error) {
	p, err := c.sb.program(ctx, receiver.CodeHash)
	if err != nil {
		return nil, err
	}
	storage, err := c.sb.store.ReadStorage(ctx, receiver.ID)
	if err != nil {
		return nil, err
	}
	return contract.Call(p, req.Function, contract.Env{
		Self:        receiver.ID,
		Predecessor: signer,
		Deposit:     req.Deposit,
		Args:        args,
		Storage:     storage,
	})
}

func callOutcome(t store.Transaction) (*chain.CallOutcome, error) {
	status := chain.Status{Success: t.Success, Failure: t.Failure}
	out := &chain.CallOutcome{
		TxHash: t.Hash,
		Status: status,
		Receipts: []chain.Receipt{{
			Executor: chain.AccountID(t.Receiver),
			Logs:     t.Logs,
			GasBurnt: t.GasBurnt,
			Status:   status,
		}},
		GasBurnt: t.GasBurnt,
	}
	if t.Result != nil {
		ret, err := ir.MarshalCanonical(t.Result)
		if err != nil {
			return nil, err
		}
		out.Return = ret
	}
	return out, nil
}

func (c *conn) View(ctx context.Context, req chain.ViewRequest) (*chain.ViewOutcome, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	acc, err := c.sb.store.GetAccount(ctx, string(req.Contract))
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", req.Function, err)
	}
	if acc.CodeHash == "" {
		return nil, fmt.Errorf("view %s: account %s has no contract code", req.Function, acc.ID)
	}

	args, err := decodeArgs(req.Args)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", req.Function, err)
	}
	p, err := c.sb.program(ctx, acc.CodeHash)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", req.Function, err)
	}
	storage, err := c.sb.store.ReadStorage(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", req.Function, err)
	}

	eff, err := contract.View(p, req.Function, contract.Env{
		Self:    acc.ID,
		Args:    args,
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("view %s on %s: %w", req.Function, acc.ID, err)
	}

	var result ir.Value = ir.Null{}
	if eff.Return != nil {
		result = eff.Return
	}
	data, err := ir.MarshalCanonical(result)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", req.Function, err)
	}
	return &chain.ViewOutcome{Result: data, Logs: eff.Logs}, nil
}

func (c *conn) ViewAccount(ctx context.Context, id chain.AccountID) (*chain.AccountSnapshot, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	acc, err := c.sb.store.GetAccount(ctx, string(id))
	if err != nil {
		return nil, err
	}
	usage, err := c.sb.store.StorageUsage(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	return &chain.AccountSnapshot{
		ID:           id,
		Balance:      acc.Balance,
		CodeHash:     acc.CodeHash,
		StorageUsage: usage,
	}, nil
}

func (c *conn) Close() error {
	c.closed = true
	return nil
}

// decodeArgs parses call arguments. Empty input is an empty object.
func decodeArgs(data []byte) (ir.Object, error) {
	if len(data) == 0 {
		return ir.Object{}, nil
	}
	v, err := ir.Unmarshal(data)
	if err != nil {
		return ir.Object{}, fmt.Errorf("invalid arguments: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return ir.Object{}, fmt.Errorf("invalid arguments: expected a JSON object, got %s", string(data))
	}
	return obj, nil
}
