package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxHash_Deterministic(t *testing.T) {
	args := Object{"owner_id": String("alice")}
	h1, err := TxHash("alice.root", "token.root", "init", args, 1)
	require.NoError(t, err)
	h2, err := TxHash("alice.root", "token.root", "init", Object{"owner_id": String("alice")}, 1)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestTxHash_NonceSeparatesIdenticalCalls(t *testing.T) {
	h1, err := TxHash("a", "b", "f", nil, 1)
	require.NoError(t, err)
	h2, err := TxHash("a", "b", "f", nil, 2)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestCodeHash_DomainSeparated(t *testing.T) {
	code := []byte("name: \"token\"")
	assert.Equal(t, CodeHash(code), CodeHash(code))
	assert.NotEqual(t, hashWithDomain(DomainTransaction, code), CodeHash(code))
}
