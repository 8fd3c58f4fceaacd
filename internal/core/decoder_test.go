package core

import (
	"reflect"
	"testing"
)

func TestDecodeFeatures(t *testing.T) {
	tests := []struct {
		name    string
		payload RawFeaturePayload
		want    []string
	}{
		{
			name: "keeps enabled and drops disabled",
			payload: RawFeaturePayload{
				PartnerID: "p1",
				Features: []FeatureEntry{
					{Name: "Wills", Status: StatusEnabled},
					{Name: "AVC", Status: StatusDisabled},
				},
			},
			want: []string{"Wills"},
		},
		{
			name: "preserves payload order",
			payload: RawFeaturePayload{
				PartnerID: "p1",
				Features: []FeatureEntry{
					{Name: "Mortgages", Status: StatusEnabled},
					{Name: "AVC", Status: StatusEnabled},
					{Name: "Wills", Status: StatusEnabled},
				},
			},
			want: []string{"Mortgages", "AVC", "Wills"},
		},
		{
			name: "status match is case sensitive",
			payload: RawFeaturePayload{
				Features: []FeatureEntry{
					{Name: "AVC", Status: "Enabled"},
					{Name: "Wills", Status: "ENABLED"},
				},
			},
			want: []string{},
		},
		{
			name: "status is not trimmed",
			payload: RawFeaturePayload{
				Features: []FeatureEntry{
					{Name: "AVC", Status: " enabled"},
					{Name: "Wills", Status: "enabled "},
				},
			},
			want: []string{},
		},
		{
			name: "unknown status is treated as not enabled",
			payload: RawFeaturePayload{
				Features: []FeatureEntry{
					{Name: "AVC", Status: "beta"},
					{Name: "Pensions", Status: ""},
					{Name: "Wills", Status: StatusEnabled},
				},
			},
			want: []string{"Wills"},
		},
		{
			name:    "empty payload",
			payload: RawFeaturePayload{PartnerID: "p2"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeFeatures(tt.payload)
			if got.PartnerID != tt.payload.PartnerID {
				t.Fatalf("PartnerID = %q, want %q", got.PartnerID, tt.payload.PartnerID)
			}
			if got.Names == nil {
				t.Fatal("Names = nil, want non-nil slice")
			}
			if !reflect.DeepEqual(got.Names, tt.want) {
				t.Fatalf("Names = %#v, want %#v", got.Names, tt.want)
			}
		})
	}
}

func TestResolvedFeaturesHas(t *testing.T) {
	features := ResolvedFeatures{Names: []string{"AVC", "Wills"}}

	if !features.Has("Wills") {
		t.Fatal("Has(Wills) = false, want true")
	}
	if features.Has("wills") {
		t.Fatal("Has(wills) = true, want false")
	}
	if (ResolvedFeatures{}).Has("AVC") {
		t.Fatal("zero ResolvedFeatures Has(AVC) = true, want false")
	}
}
