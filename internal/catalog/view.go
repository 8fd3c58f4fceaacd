package catalog

import (
	"sync"

	"github.com/matt-riley/moneycoach/internal/core"
	"github.com/matt-riley/moneycoach/internal/featurectx"
	"github.com/matt-riley/moneycoach/internal/resolution"
)

// EmptyMessage is shown when no product is visible once loading is over.
const EmptyMessage = "No products are available for your plan yet."

// ViewState is what the presentation layer should render.
type ViewState string

const (
	ViewLoading  ViewState = "loading"
	ViewProducts ViewState = "products"
	ViewEmpty    ViewState = "empty"
)

// View is the rendered state of the product list.
//
// A Failed outcome renders as ViewEmpty, the same as a Ready outcome with no
// visible product. Consumers that need to tell them apart check Outcome.
type View struct {
	State    ViewState      `json:"state"`
	Products []core.Product `json:"products"`
	Message  string         `json:"message,omitempty"`
	Outcome  string         `json:"outcome"`
}

// Visible reports whether the product with the given ID is listed.
func (v View) Visible(id string) bool {
	for _, p := range v.Products {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Present applies the presentation policy to outcome.
func Present(outcome resolution.Outcome, c *Catalog) View {
	view := View{
		Products: core.VisibleProducts(c.products, outcome.EnabledNames()),
		Outcome:  outcome.State().String(),
	}

	switch {
	case outcome.State() == resolution.StateLoading:
		view.State = ViewLoading
	case len(view.Products) == 0:
		view.State = ViewEmpty
		view.Message = EmptyMessage
	default:
		view.State = ViewProducts
	}

	return view
}

// Presenter caches the view of the last snapshot it rendered.
type Presenter struct {
	catalog *Catalog

	mu   sync.Mutex
	snap *featurectx.Snapshot
	view View
}

// NewPresenter returns a presenter over c.
func NewPresenter(c *Catalog) *Presenter {
	if c == nil {
		panic("catalog is nil")
	}
	return &Presenter{catalog: c}
}

// Catalog returns the presenter's catalog.
func (p *Presenter) Catalog() *Catalog {
	return p.catalog
}

// View returns the view for snap, recomputing it only when snap differs from
// the previous call's snapshot. A nil snap renders as Loading.
func (p *Presenter) View(snap *featurectx.Snapshot) View {
	if snap == nil {
		return Present(resolution.Loading(), p.catalog)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if snap != p.snap {
		p.view = Present(snap.Outcome, p.catalog)
		p.snap = snap
	}
	return p.view
}
