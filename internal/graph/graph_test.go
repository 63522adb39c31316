package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_ValidatesAndOrders(t *testing.T) {
	g, err := New()
	require.NoError(t, err)
	order := g.Order()
	require.Len(t, order, len(fixedPasses))

	index := make(map[PassName]int, len(order))
	for i, n := range order {
		index[n] = i
	}

	for _, p := range fixedPasses {
		for _, dep := range p.DependsOn {
			require.Lessf(t, index[dep], index[p.Name], "%q must be sequenced before %q", dep, p.Name)
		}
	}
}

func TestEdges_MatchPipeline(t *testing.T) {
	g, err := New()
	require.NoError(t, err)

	mustDependOn := map[PassName][]PassName{
		PassPrepass:      {PassShadow},
		PassSSAO:         {PassPrepass},
		PassSSAOBlur:     {PassSSAO},
		PassGIInject:     {PassGISurface},
		PassGIPropagate:  {PassGIInject},
		PassMain:         {PassSSAOBlur, PassGIPropagate},
		PassPost:         {PassAutoExposure, PassSunShafts},
		PassImgui:        {PassPost},
		PassPresent:      {PassImgui},
	}
	for name, deps := range mustDependOn {
		p, ok := g.Pass(name)
		require.True(t, ok)
		for _, d := range deps {
			require.Contains(t, p.DependsOn, d)
		}
	}
}

func TestQueueAffinity(t *testing.T) {
	g, err := New()
	require.NoError(t, err)
	require.Equal(t, Compute, g.QueueOf(PassGISurface))
	require.Equal(t, Graphics, g.QueueOf(PassMain))
}
