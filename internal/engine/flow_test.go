package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_Generate(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "UUIDv7 tokens sort by creation time")
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestSequenceGenerator_Generate(t *testing.T) {
	gen := NewSequenceGenerator("flow")
	assert.Equal(t, "flow-1", gen.Generate())
	assert.Equal(t, "flow-2", gen.Generate())
}

func TestEngine_FlowTokenPerStimulus(t *testing.T) {
	a := newFake().echo("x")
	_, h := setupEngine(t, map[string]Concept{"A": a}, nil, WithFlowGenerator(NewFixedGenerator("f1", "f2")))

	out1, err := h["A"].Dispatch(context.Background(), "x", nil)
	require.NoError(t, err)
	out2, err := h["A"].Dispatch(context.Background(), "x", nil)
	require.NoError(t, err)

	assert.Equal(t, "f1", out1.Flow)
	assert.Equal(t, "f1", out1.Root.Flow)
	assert.Equal(t, "f2", out2.Flow)
	assert.NotEqual(t, out1.Root.ID, out2.Root.ID)
}
