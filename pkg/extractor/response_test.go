package extractor

import (
	"errors"
	"testing"
)

func TestParseResponse(t *testing.T) {
	cases := []struct {
		body string
		want Extraction
	}{
		{`{"cardNumber":"SC-045","hero":"Bo"}`, Extraction{CardNumber: "SC-045", Hero: "Bo"}},
		{"```json\n{\"cardNumber\": \"KB-12\"}\n```", Extraction{CardNumber: "KB-12"}},
		{`Sure! Here it is: {"card_number":" MV-7 ","name":"Ada"} hope that helps`, Extraction{CardNumber: "MV-7", Hero: "Ada"}},
	}
	for _, c := range cases {
		got, err := ParseResponse(c.body)
		if err != nil || got != c.want {
			t.Fatalf("ParseResponse(%q) = %+v, %v want %+v", c.body, got, err, c.want)
		}
	}
}

func TestParseResponseInvalid(t *testing.T) {
	for _, body := range []string{"", "   ", "no json", `{"hero":"Bo"}`, `{"cardNumber":""}`, `{broken`} {
		if _, err := ParseResponse(body); !errors.Is(err, ErrInvalidResponse) {
			t.Fatalf("ParseResponse(%q): expected ErrInvalidResponse got %v", body, err)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := newError("op", ErrNetwork, "status 500")
	if !errors.Is(err, ErrNetwork) || errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("unexpected error identity: %v", err)
	}
	if err.Error() != "extractor: op failed: status 500: paid extractor request failed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
