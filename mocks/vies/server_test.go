package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func envelope(op, country, number string) string {
	return `<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ins0="` + typesNamespace + `">` +
		`<env:Body><ins0:` + op + `><ins0:countryCode>` + country + `</ins0:countryCode>` +
		`<ins0:vatNumber>` + number + `</ins0:vatNumber></ins0:` + op + `></env:Body></env:Envelope>`
}

func post(t *testing.T, h http.Handler, body string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	out, _ := io.ReadAll(rec.Body)
	return rec.Code, string(out)
}

func TestServer(t *testing.T) {
	h := newServer(defaultRegistry(), time.Millisecond, slog.New(slog.DiscardHandler))

	t.Run("known number is valid", func(t *testing.T) {
		code, body := post(t, h, envelope("checkVat", "NL", "123456789B01"))
		if code != http.StatusOK || !strings.Contains(body, "<ns2:valid>true</ns2:valid>") || !strings.Contains(body, "ACME BV") {
			t.Fatalf("unexpected response %d: %s", code, body)
		}
	})

	t.Run("unknown number is invalid", func(t *testing.T) {
		_, body := post(t, h, envelope("checkVat", "NL", "000"))
		if !strings.Contains(body, "<ns2:valid>false</ns2:valid>") {
			t.Fatalf("expected invalid: %s", body)
		}
	})

	t.Run("approx uses trader fields", func(t *testing.T) {
		_, body := post(t, h, envelope("checkVatApprox", "DE", "123456789"))
		if !strings.Contains(body, "<ns2:traderName>Beispiel GmbH</ns2:traderName>") {
			t.Fatalf("expected trader name: %s", body)
		}
	})

	t.Run("BUSY1 faults once", func(t *testing.T) {
		_, first := post(t, h, envelope("checkVat", "IT", "BUSY1"))
		_, second := post(t, h, envelope("checkVat", "IT", "BUSY1"))
		if !strings.Contains(first, "<faultcode>env:Server</faultcode>") {
			t.Fatalf("expected busy fault: %s", first)
		}
		if !strings.Contains(second, "<ns2:valid>true</ns2:valid>") {
			t.Fatalf("expected valid on retry: %s", second)
		}
	})

	t.Run("HTTP500", func(t *testing.T) {
		code, _ := post(t, h, envelope("checkVat", "IT", "HTTP500"))
		if code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", code)
		}
	})

	t.Run("garbage body is an input fault", func(t *testing.T) {
		_, body := post(t, h, "not xml")
		if !strings.Contains(body, "INVALID_INPUT") {
			t.Fatalf("expected INVALID_INPUT: %s", body)
		}
	})
}
