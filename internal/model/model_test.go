package model

import (
	"testing"
	"time"
)

func TestLinkDataNormalize(t *testing.T) {
	tests := []struct {
		name   string
		in     *LinkData
		want   map[string]string
	}{
		{
			name: "legacy only",
			in: &LinkData{
				ShortCode:        "abc",
				LegacyCustomData: map[string]string{"ref": "legacy"},
			},
			want: map[string]string{"ref": "legacy"},
		},
		{
			name: "legacy wins over canonical",
			in: &LinkData{
				ShortCode:        "abc",
				CustomParameters: map[string]string{"ref": "new"},
				LegacyCustomData: map[string]string{"ref": "legacy"},
			},
			want: map[string]string{"ref": "legacy"},
		},
		{
			name: "canonical only",
			in: &LinkData{
				ShortCode:        "abc",
				CustomParameters: map[string]string{"ref": "new"},
			},
			want: map[string]string{"ref": "new"},
		},
		{
			name: "neither",
			in:   &LinkData{ShortCode: "abc"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if got.LegacyCustomData != nil {
				t.Error("legacy field should be cleared after normalization")
			}
			if len(got.CustomParameters) != len(tt.want) {
				t.Fatalf("CustomParameters = %v, want %v", got.CustomParameters, tt.want)
			}
			for k, v := range tt.want {
				if got.CustomParameters[k] != v {
					t.Errorf("CustomParameters[%q] = %q, want %q", k, got.CustomParameters[k], v)
				}
			}
		})
	}
}

func TestLinkDataNormalizeNil(t *testing.T) {
	var data *LinkData
	if data.Normalize() != nil {
		t.Error("normalizing nil should return nil")
	}
}

func TestLinkDataNormalizeDoesNotMutate(t *testing.T) {
	in := &LinkData{
		ShortCode:        "abc",
		LegacyCustomData: map[string]string{"ref": "legacy"},
	}
	in.Normalize()
	if in.LegacyCustomData == nil {
		t.Error("Normalize should copy, not mutate the receiver")
	}
}

func TestNewEventRecordTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.FixedZone("CET", 3600))
	record := NewEventRecord("install-1", "signup", nil, now)

	if record.Timestamp != "2025-03-14T08:26:53Z" {
		t.Errorf("Timestamp = %q, want UTC RFC3339", record.Timestamp)
	}
	if record.InstallID != "install-1" || record.EventName != "signup" {
		t.Errorf("unexpected record: %+v", record)
	}
}

func TestUTMParametersIsZero(t *testing.T) {
	if !(UTMParameters{}).IsZero() {
		t.Error("empty UTMParameters should be zero")
	}
	if (UTMParameters{Source: "google"}).IsZero() {
		t.Error("populated UTMParameters should not be zero")
	}
}
