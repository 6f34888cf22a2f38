package trainrec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokeriq/trainrec"
	"github.com/pokeriq/trainrec/datasource"
	"github.com/pokeriq/trainrec/engine"
	"github.com/pokeriq/trainrec/strategy"
)

func TestFacade(t *testing.T) {
	var e *trainrec.Engine
	e, err := engine.New(datasource.NewMemory(), strategy.NewRegistry(&strategy.Content{Weights: strategy.DefaultContentWeights()}))
	require.NoError(t, err)

	resp := e.GetRecommendations(context.Background(), &trainrec.Request{UserID: "u1", Algorithm: trainrec.AlgorithmContentBased})
	require.NotNil(t, resp)
	assert.Equal(t, trainrec.AlgorithmFallback, resp.Metadata.Algorithm)
}
