package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
)

type notesBody struct {
	Token string `json:"token" validate:"required"`
	Notes string `json:"notes" validate:"max=5"`
}

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"token":"EC-1","notes":"ok"}`, false},
		{"empty", ``, true},
		{"unknown field", `{"token":"EC-1","extra":1}`, true},
		{"missing required", `{"notes":"ok"}`, true},
		{"too long", `{"token":"EC-1","notes":"toolong"}`, true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
		var dest notesBody
		err := DecodeJSONBody(req, &dest)
		if tt.wantErr {
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("%s: expected validation error got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
	}
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" 12.34 ", "amount")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if amount.String() != "12.34" {
		t.Fatalf("unexpected amount %s", amount)
	}
	if whole, err := ParseAmount("100.000", "amount"); err != nil || !whole.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("trailing zeros should be accepted, got %s (%v)", whole, err)
	}
	for _, raw := range []string{"", "abc", "0", "-5", "0.004", "99.995"} {
		if _, err := ParseAmount(raw, "amount"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%q: expected validation error got %v", raw, err)
		}
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20", nil)
	if v, err := ParseQueryInt(req, "limit", 50, 1, 200); err != nil || v != 20 {
		t.Fatalf("expected 20 got %d (%v)", v, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/?limit=999", nil)
	if _, err := ParseQueryInt(req, "limit", 50, 1, 200); err == nil {
		t.Fatalf("expected out of range error")
	}
}
