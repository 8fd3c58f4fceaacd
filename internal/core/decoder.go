package core

// DecodeFeatures keeps the entries of payload whose status is exactly
// "enabled". Any other status, including unknown literals and differently
// cased spellings, counts as not enabled. It never fails.
func DecodeFeatures(payload RawFeaturePayload) ResolvedFeatures {
	names := make([]string, 0, len(payload.Features))
	for _, entry := range payload.Features {
		if entry.Status == StatusEnabled {
			names = append(names, entry.Name)
		}
	}

	return ResolvedFeatures{
		PartnerID: payload.PartnerID,
		Names:     names,
	}
}
