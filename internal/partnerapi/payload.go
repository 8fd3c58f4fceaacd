package partnerapi

import (
	"errors"

	"github.com/tidwall/gjson"

	"github.com/matt-riley/moneycoach/internal/core"
)

var (
	ErrInvalidJSON      = errors.New("invalid JSON document")
	ErrMissingPartnerID = errors.New(`"partnerId" must be a string`)
	ErrMissingFeatures  = errors.New(`"features" must be an object`)
)

// ParsePayload decodes a partner features document:
//
//	{"partnerId": "p1", "features": {"Wills": "enabled", "AVC": "disabled"}}
//
// The features object is walked in document order. A name that appears more
// than once keeps its first position and takes its last status. A status that
// is not a string is kept as its raw JSON text, so it never reads as enabled.
func ParsePayload(body []byte) (core.RawFeaturePayload, error) {
	if !gjson.ValidBytes(body) {
		return core.RawFeaturePayload{}, ErrInvalidJSON
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return core.RawFeaturePayload{}, ErrInvalidJSON
	}

	partnerID := root.Get("partnerId")
	if partnerID.Type != gjson.String {
		return core.RawFeaturePayload{}, ErrMissingPartnerID
	}

	features := root.Get("features")
	if !features.IsObject() {
		return core.RawFeaturePayload{}, ErrMissingFeatures
	}

	payload := core.RawFeaturePayload{
		PartnerID: partnerID.String(),
		Features:  make([]core.FeatureEntry, 0),
	}
	positions := make(map[string]int)

	features.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		status := core.FeatureStatus(value.Raw)
		if value.Type == gjson.String {
			status = core.FeatureStatus(value.String())
		}
		if idx, ok := positions[name]; ok {
			payload.Features[idx].Status = status
			return true
		}

		positions[name] = len(payload.Features)
		payload.Features = append(payload.Features, core.FeatureEntry{Name: name, Status: status})
		return true
	})
	return payload, nil
}
