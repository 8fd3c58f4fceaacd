package core

// VisibleProducts returns the products of catalog whose Name appears in
// enabled, in catalog order. A nil or empty enabled list yields an empty,
// non-nil slice.
func VisibleProducts(catalog []Product, enabled []string) []Product {
	visible := make([]Product, 0)
	if len(enabled) == 0 {
		return visible
	}

	names := make(map[string]struct{}, len(enabled))
	for _, name := range enabled {
		names[name] = struct{}{}
	}

	for _, product := range catalog {
		if _, ok := names[product.Name]; ok {
			visible = append(visible, product)
		}
	}

	return visible
}
