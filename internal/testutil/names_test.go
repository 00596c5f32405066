package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedNameGenerator_ReturnsSameName(t *testing.T) {
	gen := NewFixedNameGenerator("golden")

	assert.Equal(t, "golden", gen.Generate())
	assert.Equal(t, "golden", gen.Generate())
}

func TestFixedNameGenerator_EmptyNameDefault(t *testing.T) {
	assert.Equal(t, "fixed", NewFixedNameGenerator("").Generate())
}

func TestSequenceNameGenerator_CountsFromOne(t *testing.T) {
	gen := NewSequenceNameGenerator("run")

	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())

	gen.Reset()
	assert.Equal(t, "run-1", gen.Generate())
}

func TestSequenceNameGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceNameGenerator("p")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				name := gen.Generate()
				mu.Lock()
				seen[name] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000, "every generated name must be unique")
}
