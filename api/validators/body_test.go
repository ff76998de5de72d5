package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
)

type settlementBody struct {
	TxHash string `json:"txHash" validate:"required,txhash"`
	Wallet string `json:"wallet" validate:"omitempty,wallet"`
	Path   string `json:"path" validate:"omitempty,oneof=free credit"`
}

func newRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyCustomTags(t *testing.T) {
	var body settlementBody
	err := DecodeJSONBody(newRequest(`{"txHash":"0x`+strings.Repeat("ab", 32)+`","wallet":"0x`+strings.Repeat("1", 40)+`"}`), &body)
	if err != nil {
		t.Fatalf("expected valid body, got %v", err)
	}

	err = DecodeJSONBody(newRequest(`{"txHash":"0x1234","wallet":"nope"}`), &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["txHash"] == "" || details["wallet"] == "" {
		t.Fatalf("expected both fields reported, got %v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var body settlementBody
	err := DecodeJSONBody(newRequest(`{"txHash":"0x`+strings.Repeat("ab", 32)+`","bonus":5}`), &body)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeOptionalJSONBodyAcceptsEmpty(t *testing.T) {
	var body struct {
		Path string `json:"path" validate:"omitempty,oneof=free credit"`
	}
	if err := DecodeOptionalJSONBody(newRequest(""), &body); err != nil {
		t.Fatalf("expected empty body to pass, got %v", err)
	}
	if err := DecodeJSONBody(newRequest(""), &body); err == nil {
		t.Fatalf("expected required body to fail")
	}
	if err := DecodeOptionalJSONBody(newRequest(`{"path":"turbo"}`), &body); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected oneof failure, got %v", err)
	}
}

func TestDecodeJSONBodyReportsBodyProblems(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"syntax":    {body: `{"txHash":}`, want: "malformed JSON"},
		"type":      {body: `{"txHash":42}`, want: "txHash must be string"},
		"trailing":  {body: `{"txHash":"0x` + strings.Repeat("ab", 32) + `"} {}`, want: ""},
		"oversized": {body: `{"txHash":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, want: "body exceeds"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var body settlementBody
			err := DecodeJSONBody(newRequest(tc.body), &body)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if tc.want == "" {
				return
			}
			details, _ := typed.Details().(map[string]string)
			if !strings.Contains(details["body"], tc.want) {
				t.Fatalf("expected %q in details, got %v", tc.want, details)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	bounds := IntRange{Default: 25, Min: 1, Max: 100}

	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := QueryInt(req, "limit", bounds); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/?limit=ten", nil)
	if _, err := QueryInt(req, "limit", bounds); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected numeric error, got %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if v, err := QueryInt(req, "limit", bounds); err != nil || v != 25 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
}

func TestClip(t *testing.T) {
	if got := Clip("  spin_pack_small  ", 64); got != "spin_pack_small" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := Clip("ééééé", 3); got != "ééé" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
}

func TestReadBodyCapsSize(t *testing.T) {
	body, err := ReadBody(httptest.NewRecorder(), newRequest(`{"sku":"spin_pack_small"}`))
	if err != nil || string(body) != `{"sku":"spin_pack_small"}` {
		t.Fatalf("unexpected read: %q %v", body, err)
	}

	_, err = ReadBody(httptest.NewRecorder(), newRequest(strings.Repeat("a", MaxBodyBytes+1)))
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
