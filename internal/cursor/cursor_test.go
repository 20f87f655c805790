package cursor

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestCursorEncodeDecode(t *testing.T) {
	c, err := New("3f1c2a9e-8b4d-4c7a-9e21-5d6f7a8b9c0d", 42)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	encoded, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if encoded == "" {
		t.Fatal("Encoded cursor is empty")
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.ResourceUUID != c.ResourceUUID || decoded.LastID != 42 {
		t.Errorf("decoded cursor = %+v, want %+v", decoded, c)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New("", 5); err == nil {
		t.Error("expected error for empty resource uuid")
	}
	if _, err := New("abc", 0); err == nil {
		t.Error("expected error for zero last ID")
	}
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
		wantErr string
	}{
		{name: "empty", encoded: "", wantErr: "empty cursor"},
		{name: "not base64", encoded: "!!!", wantErr: "invalid cursor encoding"},
		{name: "not json", encoded: base64.URLEncoding.EncodeToString([]byte("nope")), wantErr: "invalid cursor format"},
		{name: "missing resource", encoded: base64.URLEncoding.EncodeToString([]byte(`{"last_id":3}`)), wantErr: "missing resource"},
		{name: "missing last id", encoded: base64.URLEncoding.EncodeToString([]byte(`{"resource_uuid":"abc"}`)), wantErr: "missing last ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.encoded)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestFor(t *testing.T) {
	c := &Cursor{ResourceUUID: "abc", LastID: 7}
	if err := c.For("abc"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := c.For("def"); err == nil {
		t.Error("expected error for mismatched resource")
	}
}

func TestBuildWhereClause(t *testing.T) {
	c := &Cursor{ResourceUUID: "abc", LastID: 19}
	where, params := c.BuildWhereClause()
	if where != "id < ?" {
		t.Errorf("where = %q", where)
	}
	if len(params) != 1 || params[0] != int64(19) {
		t.Errorf("params = %v", params)
	}
}
