package validators

import (
	"bytes"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
)

type sampleBody struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=2"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	r := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"email":"a@b.com","name":"Ana"}`))
	var body sampleBody
	if err := DecodeJSONBody(r, &body); err != nil {
		t.Fatalf("DecodeJSONBody: %v", err)
	}
	if body.Email != "a@b.com" {
		t.Fatalf("unexpected email %q", body.Email)
	}
}

func TestDecodeJSONBodyValidationDetailsUseJSONNames(t *testing.T) {
	r := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"email":"not-an-email","name":"A"}`))
	var body sampleBody
	err := DecodeJSONBody(r, &body)
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["email"] != "must be a valid email" {
		t.Fatalf("unexpected email detail %q", details["email"])
	}
	if details["name"] != "must be at least 2" {
		t.Fatalf("unexpected name detail %q", details["name"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"email":"a@b.com","name":"Ana","extra":1}`))
	var body sampleBody
	if err := DecodeJSONBody(r, &body); err == nil {
		t.Fatal("expected unknown field rejection")
	}
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=30", nil)
	got, err := ParseQueryInt(r, "limit", 50, 1, 100)
	if err != nil {
		t.Fatalf("ParseQueryInt: %v", err)
	}
	if got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}

	r = httptest.NewRequest("GET", "/", nil)
	if got, _ = ParseQueryInt(r, "limit", 50, 1, 100); got != 50 {
		t.Fatalf("expected default 50, got %d", got)
	}

	r = httptest.NewRequest("GET", "/?limit=500", nil)
	if _, err = ParseQueryInt(r, "limit", 50, 1, 100); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestBearerToken(t *testing.T) {
	if got := BearerToken("Bearer abc.def.ghi"); got != "abc.def.ghi" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := BearerToken("abc.def.ghi"); got != "" {
		t.Fatalf("expected empty for missing scheme, got %q", got)
	}
	if got := BearerToken(""); got != "" {
		t.Fatalf("expected empty for blank header, got %q", got)
	}
}
