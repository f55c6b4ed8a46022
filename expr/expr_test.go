package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewave-audio/sgengine/ident"
)

func bogusNodeID() ident.NodeID { return ident.FromValue[ident.NodeKind](999) }

func TestAddNodeTwoPhaseConstruction(t *testing.T) {
	g := NewGraph()
	n := g.AddNode(nil, 2, "add")
	require.Len(t, n.Inputs, 2)
	require.NoError(t, g.ConnectNodeInput(n.Inputs[0].ID, NoSource()))
}

func TestValidateDetectsMissingNode(t *testing.T) {
	g := NewGraph()
	n := g.AddNode(nil, 1, "sin")
	n.Inputs[0].Source = NodeSource(bogusNodeID())
	err := g.Validate()
	require.Error(t, err)
	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, NodeNotFound, ge.Kind)
}

func TestListTopologicallyOrdersDependencies(t *testing.T) {
	g := NewGraph()
	a := g.AddNode(nil, 0, "const-a")
	b := g.AddNode(nil, 1, "double")
	require.NoError(t, g.ConnectNodeInput(b.Inputs[0].ID, NodeSource(a.ID)))

	order, err := g.ListTopologically()
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, a.ID, order[0])
	assert.Equal(t, b.ID, order[1])
}

func TestListTopologicallyDetectsCycle(t *testing.T) {
	g := NewGraph()
	a := g.AddNode(nil, 1, "a")
	b := g.AddNode(nil, 1, "b")
	require.NoError(t, g.ConnectNodeInput(a.Inputs[0].ID, NodeSource(b.ID)))
	require.NoError(t, g.ConnectNodeInput(b.Inputs[0].ID, NodeSource(a.ID)))

	_, err := g.ListTopologically()
	require.Error(t, err)
	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, CircularDependency, ge.Kind)
}

func TestEditRollsBackOnValidationFailure(t *testing.T) {
	g := NewGraph()
	a := g.AddNode(nil, 0, "a")
	before := len(g.Nodes())

	err := g.Edit(func(clone *Graph) error {
		require.NoError(t, clone.RemoveNode(a.ID))
		n := clone.AddNode(nil, 1, "broken")
		n.Inputs[0].Source = NodeSource(bogusNodeID())
		return nil
	})
	require.Error(t, err)
	assert.Len(t, g.Nodes(), before)
}

func TestEditCommitsOnSuccess(t *testing.T) {
	g := NewGraph()
	err := g.Edit(func(clone *Graph) error {
		clone.AddNode(nil, 0, "new")
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, g.Nodes(), 1)
}
