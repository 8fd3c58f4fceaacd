package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matt-riley/moneycoach/internal/core"
)

// Navigator moves the presentation to a product screen. Callers do not wait
// for a result.
type Navigator interface {
	Navigate(ctx context.Context, screenName string)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(ctx context.Context, screenName string)

func (f NavigatorFunc) Navigate(ctx context.Context, screenName string) {
	f(ctx, screenName)
}

// LogNavigator records screen transitions in the log.
type LogNavigator struct {
	Logger *slog.Logger
}

func (n LogNavigator) Navigate(ctx context.Context, screenName string) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "navigate", slog.String("screen", screenName))
}

// Select navigates to the screen of the product with the given ID when view
// lists it.
func (c *Catalog) Select(ctx context.Context, view View, id string, nav Navigator) (core.Product, error) {
	product, ok := c.ByID(id)
	if !ok {
		return core.Product{}, fmt.Errorf("%w: %q", ErrUnknownProduct, id)
	}
	if !view.Visible(id) {
		return core.Product{}, fmt.Errorf("%w: %q", ErrProductNotVisible, id)
	}

	nav.Navigate(ctx, product.ScreenName)
	return product, nil
}
