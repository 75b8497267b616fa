package main

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"text/template"
	"time"
)

const typesNamespace = "urn:ec.europa.eu:taxud:vies:services:checkVat:types"

type trader struct {
	Name    string
	Address string
}

func defaultRegistry() map[string]trader {
	return map[string]trader{
		"NL123456789B01": {Name: "ACME BV", Address: "Keizersgracht 1\n1015 CJ Amsterdam"},
		"DE123456789":    {Name: "Beispiel GmbH", Address: "Hauptstr. 5\n10115 Berlin"},
		"FR12345678901":  {Name: "EXEMPLE SARL", Address: "1 rue de Rivoli\n75001 Paris"},
		"BE0123456789":   {Name: "---", Address: "---"},
	}
}

type server struct {
	registry map[string]trader
	slow     time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	seen map[string]int
}

func newServer(registry map[string]trader, slow time.Duration, logger *slog.Logger) *server {
	return &server{registry: registry, slow: slow, logger: logger, seen: map[string]int{}}
}

type checkRequest struct {
	Operation   string
	CountryCode string
	VatNumber   string
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := parseRequest(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		s.writeFault(w, "INVALID_INPUT")
		return
	}
	s.mu.Lock()
	s.seen[req.key()]++
	calls := s.seen[req.key()]
	s.mu.Unlock()
	s.logger.Info("check", "operation", req.Operation, "vat", req.key(), "call", calls)

	switch req.VatNumber {
	case "BUSY1":
		if calls == 1 {
			s.writeFault(w, "env:Server")
			return
		}
		s.writeResult(w, req, true, trader{Name: "Retry Ltd", Address: "Second Try 2"})
	case "BUSYALL":
		s.writeFault(w, "env:Server")
	case "FAULT":
		s.writeFault(w, "INVALID_INPUT")
	case "HTTP500":
		http.Error(w, "internal error", http.StatusInternalServerError)
	case "SLOW":
		select {
		case <-time.After(s.slow):
		case <-r.Context().Done():
			return
		}
		s.writeResult(w, req, true, trader{Name: "Slow SA", Address: "Eventually 3"})
	default:
		t, ok := s.registry[req.key()]
		s.writeResult(w, req, ok, t)
	}
}

func (r checkRequest) key() string {
	return r.CountryCode + r.VatNumber
}

// parseRequest reads the operation element and its countryCode and
// vatNumber children from the SOAP body.
func parseRequest(body io.Reader) (checkRequest, error) {
	var req checkRequest
	dec := xml.NewDecoder(body)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return req, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Space != typesNamespace {
			continue
		}
		var target *string
		switch se.Name.Local {
		case "checkVat", "checkVatApprox":
			req.Operation = se.Name.Local
			continue
		case "countryCode":
			target = &req.CountryCode
		case "vatNumber":
			target = &req.VatNumber
		default:
			continue
		}
		if err := dec.DecodeElement(target, &se); err != nil {
			return req, err
		}
	}
	if req.Operation == "" || req.CountryCode == "" {
		return req, fmt.Errorf("not a checkVat request")
	}
	return req, nil
}

var resultTmpl = template.Must(template.New("result").Funcs(template.FuncMap{"x": escape}).Parse(
	`<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
  <env:Body>
    <ns2:{{.Op}}Response xmlns:ns2="` + typesNamespace + `">
      <ns2:countryCode>{{x .Country}}</ns2:countryCode>
      <ns2:vatNumber>{{x .Number}}</ns2:vatNumber>
      <ns2:requestDate>{{.Date}}</ns2:requestDate>
      <ns2:valid>{{.Valid}}</ns2:valid>
      <ns2:{{.Prefix}}name>{{x .Name}}</ns2:{{.Prefix}}name>
      <ns2:{{.Prefix}}address>{{x .Address}}</ns2:{{.Prefix}}address>
    </ns2:{{.Op}}Response>
  </env:Body>
</env:Envelope>`))

func (s *server) writeResult(w http.ResponseWriter, req checkRequest, valid bool, t trader) {
	if !valid {
		t = trader{Name: "---", Address: "---"}
	}
	data := map[string]any{
		"Op":      req.Operation,
		"Country": req.CountryCode,
		"Number":  req.VatNumber,
		"Date":    time.Now().UTC().Format("2006-01-02+00:00"),
		"Valid":   valid,
		"Prefix":  "",
		"Name":    t.Name,
		"Address": t.Address,
	}
	if req.Operation == "checkVatApprox" {
		data["Prefix"] = "trader"
		data["Name"] = t.Name
		data["Address"] = t.Address
	}
	var buf bytes.Buffer
	if err := resultTmpl.Execute(&buf, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) writeFault(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
	// Faults go out with 200: the gateway never decodes a non-2xx body.
	_, _ = fmt.Fprintf(w, `<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/"><env:Body><env:Fault>`+
		`<faultcode>%s</faultcode><faultstring>%s</faultstring></env:Fault></env:Body></env:Envelope>`, escape(code), escape(code))
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
