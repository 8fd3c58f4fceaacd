package partnerapi

import (
	"errors"
	"testing"

	"github.com/matt-riley/moneycoach/internal/core"
)

func TestParsePayloadPreservesDocumentOrder(t *testing.T) {
	payload, err := ParsePayload([]byte(`{"features":{"Wills":"enabled","AVC":"disabled","Pensions":"enabled"},"partnerId":"p9"}`))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}

	names := make([]string, 0, len(payload.Features))
	for _, entry := range payload.Features {
		names = append(names, entry.Name)
	}
	want := []string{"Wills", "AVC", "Pensions"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	if payload.PartnerID != "p9" {
		t.Fatalf("PartnerID = %q, want p9", payload.PartnerID)
	}
}

func TestParsePayloadDuplicateKeys(t *testing.T) {
	payload, err := ParsePayload([]byte(`{"partnerId":"p1","features":{"AVC":"enabled","Wills":"enabled","AVC":"disabled"}}`))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}

	want := []core.FeatureEntry{
		{Name: "AVC", Status: core.StatusDisabled},
		{Name: "Wills", Status: core.StatusEnabled},
	}
	if len(payload.Features) != len(want) {
		t.Fatalf("Features = %+v, want %+v", payload.Features, want)
	}
	for i := range want {
		if payload.Features[i] != want[i] {
			t.Fatalf("Features[%d] = %+v, want %+v", i, payload.Features[i], want[i])
		}
	}
}

func TestParsePayloadKeepsUnknownStatusLiterals(t *testing.T) {
	payload, err := ParsePayload([]byte(`{"partnerId":"p1","features":{"AVC":"Enabled","Wills":"soon"}}`))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if payload.Features[0].Status != "Enabled" || payload.Features[1].Status != "soon" {
		t.Fatalf("Features = %+v, want literal statuses", payload.Features)
	}
	if got := core.DecodeFeatures(payload); len(got.Names) != 0 {
		t.Fatalf("DecodeFeatures() = %v, want no enabled names", got.Names)
	}
}

func TestParsePayloadNonStringStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   core.FeatureStatus
	}{
		{name: "null", status: `null`, want: "null"},
		{name: "false", status: `false`, want: "false"},
		{name: "true", status: `true`, want: "true"},
		{name: "number", status: `1`, want: "1"},
		{name: "object", status: `{"state":"enabled"}`, want: `{"state":"enabled"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := ParsePayload([]byte(`{"partnerId":"p1","features":{"Wills":"enabled","AVC":` + tt.status + `}}`))
			if err != nil {
				t.Fatalf("ParsePayload() error = %v", err)
			}
			if len(payload.Features) != 2 || payload.Features[1].Status != tt.want {
				t.Fatalf("Features = %+v, want AVC with status %q", payload.Features, tt.want)
			}
			got := core.DecodeFeatures(payload).Names
			if len(got) != 1 || got[0] != "Wills" {
				t.Fatalf("DecodeFeatures() = %v, want [Wills]", got)
			}
		})
	}
}

func TestParsePayloadNonStringStatusOverridesEarlierEnabled(t *testing.T) {
	payload, err := ParsePayload([]byte(`{"partnerId":"p1","features":{"AVC":"enabled","AVC":null}}`))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if got := core.DecodeFeatures(payload); len(got.Names) != 0 {
		t.Fatalf("DecodeFeatures() = %v, want no enabled names", got.Names)
	}
}

func TestParsePayloadUnescapesKeys(t *testing.T) {
	payload, err := ParsePayload([]byte(`{"partnerId":"p1","features":{"Income \"Protection\"":"enabled","Life Cover":"enabled"}}`))
	if err != nil {
		t.Fatalf("ParsePayload() error = %v", err)
	}
	if payload.Features[0].Name != `Income "Protection"` || payload.Features[1].Name != "Life Cover" {
		t.Fatalf("Features = %+v, want unescaped names", payload.Features)
	}
}

func TestParsePayloadRejectsNonStringPartnerID(t *testing.T) {
	_, err := ParsePayload([]byte(`{"partnerId":42,"features":{}}`))
	if !errors.Is(err, ErrMissingPartnerID) {
		t.Fatalf("ParsePayload() error = %v, want %v", err, ErrMissingPartnerID)
	}
}

// FuzzParsePayload ensures the parser never panics and that every accepted
// document yields unique feature names.
func FuzzParsePayload(f *testing.F) {
	f.Add([]byte(`{"partnerId":"p1","features":{"Wills":"enabled","AVC":"disabled"}}`))
	f.Add([]byte(`{"partnerId":"p1","features":{"a":"enabled","a":"disabled"}}`))
	f.Add([]byte(`{"partnerId":"p1","features":{"a":null}}`))
	f.Add([]byte(`{"partnerId":"","features":[]}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(``))
	f.Add([]byte(`{"partnerId":"p1","features":{"é":"enabled"}}`))

	f.Fuzz(func(t *testing.T, raw []byte) {
		payload, err := ParsePayload(raw)
		if err != nil {
			return
		}
		seen := make(map[string]struct{}, len(payload.Features))
		for _, entry := range payload.Features {
			if _, dup := seen[entry.Name]; dup {
				t.Fatalf("duplicate feature name %q in %s", entry.Name, raw)
			}
			seen[entry.Name] = struct{}{}
		}
	})
}
