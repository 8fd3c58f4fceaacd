// Package moneycoach provides client interfaces and domain types for the
// moneycoach product-tile service.
//
// Use the sub-packages to create transport-specific clients:
//
//	import mchttp "github.com/matt-riley/moneycoach/clients/go/http"
//	import mcgrpc "github.com/matt-riley/moneycoach/clients/go/grpc"
package moneycoach

import "context"

// ProductLister reads and selects product tiles.
type ProductLister interface {
	Products(ctx context.Context) (View, error)
	Select(ctx context.Context, productID string) (Selection, error)
}

// FeatureReader reads and refreshes the partner's feature resolution.
type FeatureReader interface {
	Features(ctx context.Context) (Outcome, error)
	Refetch(ctx context.Context) (Outcome, error)
}

// ReadinessWatcher reports whether feature resolution is ready.
// The channel returned by WatchReady is closed when ctx is cancelled or the
// connection drops.
type ReadinessWatcher interface {
	Ready(ctx context.Context) (bool, error)
	WatchReady(ctx context.Context) (<-chan bool, error)
}

// View states.
const (
	ViewLoading  = "loading"
	ViewProducts = "products"
	ViewEmpty    = "empty"
)

// Outcome states.
const (
	StateLoading = "loading"
	StateReady   = "ready"
	StateFailed  = "failed"
)

// Product is a product tile.
type Product struct {
	ID         string
	Name       string
	ScreenName string
}

// View is the presented product list.
type View struct {
	State    string // ViewLoading | ViewProducts | ViewEmpty
	Products []Product
	Message  string // set when State is ViewEmpty
	Outcome  string // resolution state behind the view
}

// Outcome is the feature resolution state of the server's partner.
type Outcome struct {
	State     string
	PartnerID string   // empty unless State is StateReady
	Features  []string // enabled feature names in payload order
	Error     string   // set when State is StateFailed
}

// Selection is the result of selecting a product.
type Selection struct {
	ProductID  string
	ScreenName string
}
