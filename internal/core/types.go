package core

// FeatureStatus is the per-feature status string sent by the partner
// features service.
type FeatureStatus string

const (
	StatusEnabled  FeatureStatus = "enabled"
	StatusDisabled FeatureStatus = "disabled"
)

// FeatureEntry is one name/status pair of a partner payload.
type FeatureEntry struct {
	Name   string        `json:"name"`
	Status FeatureStatus `json:"status"`
}

// RawFeaturePayload is the partner features document as received on the
// wire. Features keeps the document order of the "features" object and holds
// each name at most once.
type RawFeaturePayload struct {
	PartnerID string         `json:"partnerId"`
	Features  []FeatureEntry `json:"features"`
}

// ResolvedFeatures lists the features a partner has enabled, in payload order.
type ResolvedFeatures struct {
	PartnerID string   `json:"partnerId"`
	Names     []string `json:"features"`
}

// Has reports whether name is among the enabled features.
func (f ResolvedFeatures) Has(name string) bool {
	for _, n := range f.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Product is a tile of the static product catalog. Name doubles as the
// feature name that gates the tile.
type Product struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	ScreenName string `json:"screenName" yaml:"screenName"`
}
