package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/chainharness/internal/chain"
	"github.com/roach88/chainharness/internal/units"
)

// fakeNetwork hands out a single fakeConn.
type fakeNetwork struct {
	conn       *fakeConn
	connectErr error
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{conn: newFakeConn()}
}

func (n *fakeNetwork) Connect(context.Context) (chain.Conn, error) {
	if n.connectErr != nil {
		return nil, n.connectErr
	}
	return n.conn, nil
}

// fakeConn records every request and answers from in-memory balances.
// Calls echo their arguments back as the return value.
type fakeConn struct {
	balances map[chain.AccountID]units.Balance
	code     map[chain.AccountID]string

	failCreate map[string]error
	failDeploy error
	failCall   map[string]error

	calls  []chain.CallRequest
	views  []chain.ViewRequest
	looks  []chain.AccountID
	log    []string
	closed int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		balances:   make(map[chain.AccountID]units.Balance),
		code:       make(map[chain.AccountID]string),
		failCreate: make(map[string]error),
		failCall:   make(map[string]error),
	}
}

func (c *fakeConn) CreateRootAccount(context.Context) (chain.Account, error) {
	id := chain.AccountID("root.test")
	c.balances[id] = units.Near(1000)
	c.log = append(c.log, "root")
	return chain.Account{ID: id}, nil
}

func (c *fakeConn) CreateSubaccount(_ context.Context, parent chain.Account, name string, balance units.Balance) (chain.Account, error) {
	if err := c.failCreate[name]; err != nil {
		return chain.Account{}, err
	}
	id := chain.AccountID(name + "." + string(parent.ID))
	if _, ok := c.balances[id]; ok {
		return chain.Account{}, fmt.Errorf("account %s already exists", id)
	}
	c.balances[id] = balance
	c.log = append(c.log, "create "+name)
	return chain.Account{ID: id}, nil
}

func (c *fakeConn) Deploy(_ context.Context, account chain.Account, code []byte) (chain.Contract, error) {
	if c.failDeploy != nil {
		return chain.Contract{}, c.failDeploy
	}
	c.code[account.ID] = string(code)
	c.log = append(c.log, "deploy "+string(account.ID))
	return chain.Contract{ID: account.ID, CodeHash: "hash:" + string(code)}, nil
}

func (c *fakeConn) Call(_ context.Context, req chain.CallRequest) (*chain.CallOutcome, error) {
	c.calls = append(c.calls, req)
	c.log = append(c.log, "call "+req.Function)
	if err := c.failCall[req.Function]; err != nil {
		return nil, err
	}
	return &chain.CallOutcome{
		TxHash: fmt.Sprintf("tx-%d", len(c.calls)),
		Status: chain.Status{Success: true},
		Return: req.Args,
		Receipts: []chain.Receipt{{
			Executor: req.Receiver,
			Logs:     []string{fmt.Sprintf("%s called %s", req.Signer, req.Function)},
			GasBurnt: units.Tgas(1),
			Status:   chain.Status{Success: true},
		}},
		GasBurnt: units.Tgas(1),
	}, nil
}

func (c *fakeConn) View(_ context.Context, req chain.ViewRequest) (*chain.ViewOutcome, error) {
	c.views = append(c.views, req)
	c.log = append(c.log, "view "+req.Function)
	if err := c.failCall[req.Function]; err != nil {
		return nil, err
	}
	result, _ := json.Marshal(map[string]string{"function": req.Function})
	return &chain.ViewOutcome{Result: result, Logs: []string{"viewed"}}, nil
}

func (c *fakeConn) ViewAccount(_ context.Context, id chain.AccountID) (*chain.AccountSnapshot, error) {
	c.looks = append(c.looks, id)
	c.log = append(c.log, "account "+strings.SplitN(string(id), ".", 2)[0])
	bal, ok := c.balances[id]
	if !ok {
		return nil, errors.New("no such account")
	}
	return &chain.AccountSnapshot{ID: id, Balance: bal, CodeHash: c.code[id]}, nil
}

func (c *fakeConn) Close() error {
	c.closed++
	return nil
}

func staticArtifacts(files map[string]string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		data, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("open %s: no such file", path)
		}
		return []byte(data), nil
	}
}
