// Package soap encodes checkVat / checkVatApprox requests and decodes VIES
// responses into models.Outcome.
package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"

	"vatgate/internal/vies/models"
)

// TypesNamespace is the namespace of the VIES request and response payloads.
const TypesNamespace = "urn:ec.europa.eu:taxud:vies:services:checkVat:types"

// Operation selects the VIES validation call.
type Operation string

const (
	// OperationCheckVat is the exact check; it carries the requester identity.
	OperationCheckVat Operation = "checkVat"
	// OperationCheckVatApprox is the lower-fidelity fallback without requester identity.
	OperationCheckVatApprox Operation = "checkVatApprox"
)

// ParseOperation validates an operation name from configuration.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OperationCheckVat, OperationCheckVatApprox:
		return op, nil
	}
	return "", fmt.Errorf("unknown VIES operation: %q", s)
}

// Requester identifies the party performing an exact check.
type Requester struct {
	CountryCode string
	VatNumber   string
}

// DefaultRequester is the identity sent with checkVat when none is configured.
var DefaultRequester = Requester{CountryCode: "NL", VatNumber: "NL009444452B01"}

var envelopeTmpl = template.Must(template.New("envelope").Funcs(template.FuncMap{
	"x": escape,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope
 xmlns:xsd="http://www.w3.org/2001/XMLSchema"
 xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
 xmlns:tns1="urn:ec.europa.eu:taxud:vies:services:checkVat"
 xmlns:env="http://schemas.xmlsoap.org/soap/envelope/"
 xmlns:ins0="` + TypesNamespace + `">
  <env:Body>
    <ins0:{{.Operation}}>
      <ins0:countryCode>{{x .CountryCode}}</ins0:countryCode>
      <ins0:vatNumber>{{x .Number}}</ins0:vatNumber>
{{- if .Requester.CountryCode}}
      <ins0:requesterCountryCode>{{x .Requester.CountryCode}}</ins0:requesterCountryCode>
{{- end}}
{{- if .Requester.VatNumber}}
      <ins0:requesterVatNumber>{{x .Requester.VatNumber}}</ins0:requesterVatNumber>
{{- end}}
    </ins0:{{.Operation}}>
  </env:Body>
</env:Envelope>`))

type envelopeData struct {
	Operation   Operation
	CountryCode string
	Number      string
	Requester   Requester
}

// Encode renders the request envelope for id. Country and number are
// XML-escaped. Requester identity is only sent with checkVat.
func Encode(id models.VatIdentifier, op Operation, requester Requester) ([]byte, error) {
	if op == "" {
		op = OperationCheckVat
	}
	if op != OperationCheckVat {
		requester = Requester{}
	}
	var buf bytes.Buffer
	err := envelopeTmpl.Execute(&buf, envelopeData{
		Operation:   op,
		CountryCode: id.CountryCode,
		Number:      id.Number,
		Requester:   requester,
	})
	if err != nil {
		return nil, fmt.Errorf("render %s envelope: %w", op, err)
	}
	return buf.Bytes(), nil
}

func escape(s string) (string, error) {
	var sb strings.Builder
	if err := xml.EscapeText(&sb, []byte(s)); err != nil {
		return "", err
	}
	return sb.String(), nil
}
