package jobgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_AddDependency(t *testing.T) {
	g := NewGraph()

	require.NoError(t, g.AddDependency("validation", "upload"))
	require.NoError(t, g.AddDependency("crossfile", "validation"))

	assert.Equal(t, []string{"upload"}, g.Prerequisites("validation"))
	assert.Equal(t, []string{"validation"}, g.Prerequisites("crossfile"))
	assert.Empty(t, g.Prerequisites("upload"))
}

func TestGraph_RefusesSelfEdge(t *testing.T) {
	g := NewGraph()
	assert.Error(t, g.AddDependency("a", "a"))
}

func TestGraph_RefusesCycles(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddDependency("b", "a"))
	require.NoError(t, g.AddDependency("c", "b"))

	t.Run("DirectCycle", func(t *testing.T) {
		assert.Error(t, g.AddDependency("a", "b"))
	})

	t.Run("TransitiveCycle", func(t *testing.T) {
		assert.Error(t, g.AddDependency("a", "c"))
	})

	// The failed edges must not have mutated the graph.
	assert.Empty(t, g.Prerequisites("a"))
}

func TestGraph_Edges(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddDependency("crossfile", "val-a"))
	require.NoError(t, g.AddDependency("crossfile", "val-b"))
	require.NoError(t, g.AddDependency("val-a", "upload-a"))

	edges := g.Edges()
	assert.Len(t, edges, 3)
	assert.Contains(t, edges, [2]string{"crossfile", "val-a"})
	assert.Contains(t, edges, [2]string{"crossfile", "val-b"})
	assert.Contains(t, edges, [2]string{"val-a", "upload-a"})
}

func TestGraph_DiamondIsNotACycle(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddDependency("b", "a"))
	require.NoError(t, g.AddDependency("c", "a"))
	require.NoError(t, g.AddDependency("d", "b"))
	require.NoError(t, g.AddDependency("d", "c"))

	assert.ElementsMatch(t, []string{"b", "c"}, g.Prerequisites("d"))
}
