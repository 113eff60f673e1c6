package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/amaiabotanic/storefront/pkg/errors"
)

type addItemBody struct {
	Handle   string `json:"handle" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0,max=99"`
}

func TestDecodeJSONBody(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		field   string
		wantErr bool
	}{
		{name: "valid", body: `{"handle":"rosehip-oil","quantity":2}`},
		{name: "missing handle", body: `{"quantity":2}`, field: "handle", wantErr: true},
		{name: "quantity too large", body: `{"handle":"x","quantity":100}`, field: "quantity", wantErr: true},
		{name: "unknown field", body: `{"handle":"x","color":"red"}`, wantErr: true},
		{name: "malformed", body: `{"handle":`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dest addItemBody
			err := DecodeJSONBody(req, &dest)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if tc.field == "" {
				return
			}
			typed := pkgerrors.As(err)
			details, ok := typed.Details().(map[string]string)
			if !ok || details[tc.field] == "" {
				t.Fatalf("expected detail for %s, got %#v", tc.field, typed.Details())
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "", want: 20},
		{raw: "6", want: 6},
		{raw: "0", wantErr: true},
		{raw: "251", wantErr: true},
		{raw: "six", wantErr: true},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/products?count="+tc.raw, nil)
		got, err := QueryInt(req, "count", IntRange{Fallback: 20, Min: 1, Max: 250})
		if tc.wantErr {
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("%q: expected validation error, got %v", tc.raw, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got %d, %v", tc.raw, got, err)
		}
	}
}

func TestBearerToken(t *testing.T) {
	if tok, err := BearerToken("  Bearer abc.def "); err != nil || tok != "abc.def" {
		t.Fatalf("unexpected token %q, %v", tok, err)
	}
	if tok, err := BearerToken("raw-token"); err != nil || tok != "raw-token" {
		t.Fatalf("unexpected token %q, %v", tok, err)
	}
	if _, err := BearerToken("   "); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestQueryHandle(t *testing.T) {
	cases := map[string]struct {
		query   string
		want    string
		wantErr bool
	}{
		"absent":     {query: "", want: ""},
		"trimmed":    {query: "?handle=%20Argan-Oil%20", want: "argan-oil"},
		"spaces":     {query: "?handle=argan%20oil", wantErr: true},
		"dangling":   {query: "?handle=argan-", wantErr: true},
		"too long":   {query: "?handle=" + strings.Repeat("a", 256), wantErr: true},
		"path chars": {query: "?handle=..%2Fadmin", wantErr: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/products/invalidate"+tc.query, nil)
			got, err := QueryHandle(req, "handle")
			if tc.wantErr {
				if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
					t.Fatalf("expected validation error, got %q, %v", got, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("got %q, %v", got, err)
			}
		})
	}
}
