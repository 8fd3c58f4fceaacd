package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt-riley/moneycoach/internal/core"
	"github.com/matt-riley/moneycoach/internal/featurectx"
	"github.com/matt-riley/moneycoach/internal/resolution"
)

func twoProductCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New([]core.Product{
		{ID: "fp1", Name: "AVC", ScreenName: "AVC"},
		{ID: "fp2", Name: "Mortgages", ScreenName: "Mortgages"},
	})
	require.NoError(t, err)
	return c
}

func ready(names ...string) resolution.Outcome {
	return resolution.Ready(core.ResolvedFeatures{PartnerID: "p1", Names: names})
}

func TestPresent(t *testing.T) {
	c := twoProductCatalog(t)

	tests := []struct {
		name     string
		outcome  resolution.Outcome
		state    ViewState
		products []core.Product
		message  string
		tag      string
	}{
		{
			name:     "loading shows indicator",
			outcome:  resolution.Loading(),
			state:    ViewLoading,
			products: []core.Product{},
			tag:      "loading",
		},
		{
			name:     "ready with match",
			outcome:  ready("Mortgages"),
			state:    ViewProducts,
			products: []core.Product{{ID: "fp2", Name: "Mortgages", ScreenName: "Mortgages"}},
			tag:      "ready",
		},
		{
			name:     "ready with no match shows empty state",
			outcome:  ready("Budgeting"),
			state:    ViewEmpty,
			products: []core.Product{},
			message:  EmptyMessage,
			tag:      "ready",
		},
		{
			name:     "ready with no features shows empty state",
			outcome:  ready(),
			state:    ViewEmpty,
			products: []core.Product{},
			message:  EmptyMessage,
			tag:      "ready",
		},
		{
			name:     "failed looks empty",
			outcome:  resolution.Failed("Network error"),
			state:    ViewEmpty,
			products: []core.Product{},
			message:  EmptyMessage,
			tag:      "failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := Present(tt.outcome, c)
			assert.Equal(t, tt.state, view.State)
			assert.Equal(t, tt.products, view.Products)
			assert.Equal(t, tt.message, view.Message)
			assert.Equal(t, tt.tag, view.Outcome)
		})
	}
}

func TestPresenterRecomputesOnlyOnNewSnapshot(t *testing.T) {
	c := twoProductCatalog(t)
	p := NewPresenter(c)
	var provider featurectx.Provider

	snap := provider.Snapshot(ready("AVC"))
	first := p.View(snap)
	require.Equal(t, ViewProducts, first.State)

	again := p.View(provider.Snapshot(ready("AVC")))
	assert.Same(t, &first.Products[0], &again.Products[0], "same snapshot should reuse the cached view")

	next := p.View(provider.Snapshot(resolution.Loading()))
	assert.Equal(t, ViewLoading, next.State)

	assert.Equal(t, ViewLoading, p.View(nil).State)
	assert.Same(t, c, p.Catalog())
}

func TestSelect(t *testing.T) {
	c := twoProductCatalog(t)
	view := Present(ready("Mortgages"), c)

	var screens []string
	nav := NavigatorFunc(func(_ context.Context, screen string) {
		screens = append(screens, screen)
	})

	product, err := c.Select(context.Background(), view, "fp2", nav)
	require.NoError(t, err)
	assert.Equal(t, "fp2", product.ID)

	_, err = c.Select(context.Background(), view, "fp1", nav)
	require.ErrorIs(t, err, ErrProductNotVisible)

	_, err = c.Select(context.Background(), view, "fp404", nav)
	require.ErrorIs(t, err, ErrUnknownProduct)

	assert.Equal(t, []string{"Mortgages"}, screens)
}
