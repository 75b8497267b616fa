package soap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"vatgate/internal/vies/models"
)

// faultServer is the SOAP 1.1 fault code VIES uses for overload ("try later").
const faultServer = "env:Server"

type response struct {
	fault         string
	valid         string
	name          string
	address       string
	traderName    string
	traderAddress string
	hasValid      bool
}

// Decode interprets a VIES response body. It never returns an error: malformed
// XML becomes a TransportError outcome, SOAP faults become ServiceFault.
func Decode(body []byte) models.Outcome {
	resp, err := scan(body)
	if err != nil {
		return models.TransportError("malformed VIES response: " + err.Error())
	}

	if resp.fault != "" {
		if resp.fault == faultServer {
			return models.ServiceFault(models.FaultServerBusy)
		}
		return models.ServiceFault(resp.fault)
	}

	name := resp.name
	if name == "" {
		name = resp.traderName
	}
	address := resp.address
	if address == "" {
		address = resp.traderAddress
	}
	name = dropPlaceholder(strings.TrimSpace(name), "name")
	address = dropPlaceholder(strings.Join(strings.Fields(address), " "), "address")

	if resp.valid == "true" {
		return models.Valid(name, address)
	}
	return models.Invalid(name, address)
}

// scan walks the token stream once, keeping the first occurrence of each field.
// faultcode is matched in any namespace; payload fields only in TypesNamespace.
// Only whitespace, comments and processing instructions may surround the single
// root element.
func scan(body []byte) (*response, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	resp := &response{}
	depth := 0
	roots := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		var se xml.StartElement
		switch t := tok.(type) {
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, errors.New("text outside the root element")
			}
			continue
		case xml.EndElement:
			depth--
			continue
		case xml.StartElement:
			se = t
		default:
			continue
		}

		if depth == 0 {
			roots++
			if roots > 1 {
				return nil, errors.New("content after the root element")
			}
		}

		target := resp.field(se.Name)
		if target == nil {
			depth++
			continue
		}
		// DecodeElement consumes through the matching end tag, so depth is unchanged.
		var text string
		if err := dec.DecodeElement(&text, &se); err != nil {
			return nil, err
		}
		if *target == "" {
			*target = strings.TrimSpace(text)
		}
	}
	if roots == 0 {
		return nil, errors.New("empty document")
	}
	return resp, nil
}

// field returns the slot an element's text is captured into, or nil when the
// element is not one Decode reads.
func (r *response) field(name xml.Name) *string {
	switch {
	case name.Local == "faultcode":
		return &r.fault
	case name.Space != TypesNamespace:
		return nil
	case name.Local == "valid":
		r.hasValid = true
		return &r.valid
	case name.Local == "name":
		return &r.name
	case name.Local == "address":
		return &r.address
	case name.Local == "traderName":
		return &r.traderName
	case name.Local == "traderAddress":
		return &r.traderAddress
	}
	return nil
}

func dropPlaceholder(v, placeholder string) string {
	if strings.EqualFold(strings.TrimSpace(v), placeholder) {
		return ""
	}
	return v
}
