package handler

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"playlog/backend/internal/apperr"
)

const testRelease = "de4b98ad-3f9a-4aa9-ba7a-9f8cd80eab6e"

func strp(s string) *string { return &s }

func TestCreateParams(t *testing.T) {
	req := &createRequest{
		UserID:       strp("5b3c7a52-0c55-4bd6-a0a4-6a4dbf0c59e1"),
		ReleaseID:    strp("DE4B98AD-3F9A-4AA9-BA7A-9F8CD80EAB6E"),
		ClientTime:   strp("2016-03-01T12:00:00.000Z"),
		Detail:       json.RawMessage(`"{\"build\":\"web\"}"`),
		LibraryRevID: strp("rev1"),
	}
	p, err := createParams(testRelease, req)
	if err != nil {
		t.Fatalf("createParams: %v", err)
	}
	if p.ReleaseID != testRelease {
		t.Errorf("ReleaseID = %q, want the envelope release", p.ReleaseID)
	}
	if !p.ClientTime.Equal(time.Date(2016, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("ClientTime = %v", p.ClientTime)
	}
	if p.Detail != `{"build":"web"}` {
		t.Errorf("Detail = %q", p.Detail)
	}
	if p.LibraryRevID != "rev1" {
		t.Errorf("LibraryRevID = %q", p.LibraryRevID)
	}
}

func TestCreateParams_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		req   createRequest
		field string
	}{
		{"missing user", createRequest{ClientTime: strp("2016-03-01T12:00:00Z")}, "user_id"},
		{"missing time", createRequest{UserID: strp("u")}, "client_time"},
		{"bad time", createRequest{UserID: strp("u"), ClientTime: strp("yesterday")}, "client_time"},
		{"other release", createRequest{UserID: strp("u"), ClientTime: strp("2016-03-01T12:00:00Z"), ReleaseID: strp("3f1d2c4b-5a69-4788-9a0b-1c2d3e4f5a6b")}, "release_id"},
		{"bad detail", createRequest{UserID: strp("u"), ClientTime: strp("2016-03-01T12:00:00Z"), Detail: json.RawMessage(`"{nope"`)}, "detail"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := createParams(testRelease, &tc.req)
			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation {
				t.Fatalf("want validation error, got %v", err)
			}
			found := false
			for _, f := range ae.Fields {
				found = found || f == tc.field
			}
			if !found {
				t.Errorf("fields %v should name %q", ae.Fields, tc.field)
			}
		})
	}
}

func TestCreateParams_DetailAndRevisionOptional(t *testing.T) {
	req := &createRequest{
		UserID:     strp("5b3c7a52-0c55-4bd6-a0a4-6a4dbf0c59e1"),
		ClientTime: strp("2016-03-01T12:00:00Z"),
	}
	p, err := createParams(testRelease, req)
	if err != nil {
		t.Fatalf("createParams: %v", err)
	}
	if p.Detail != "" || p.LibraryRevID != "" {
		t.Errorf("absent detail and library_revid should store empty, got %q and %q", p.Detail, p.LibraryRevID)
	}
}
