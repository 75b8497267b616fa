package models

import "strings"

// Kind discriminates the Outcome variants.
type Kind string

const (
	KindValid          Kind = "valid"
	KindInvalid        Kind = "invalid"
	KindServiceFault   Kind = "service_fault"
	KindTransportError Kind = "transport_error"
)

// Placeholders substituted for empty trader fields.
const (
	NameUnavailable    = "(name unavailable)"
	AddressUnavailable = "(address unavailable)"
)

// Fault codes produced by this system rather than passed through from VIES.
const (
	FaultServerBusy       = "Server Not Responding, try later"
	FaultRetriesExhausted = "Server Not Responding after retries"
)

// Outcome is the terminal result of checking one identifier. Exactly one
// variant is populated, selected by Kind: Name/Address for valid and invalid,
// Code for service faults, Message for transport errors.
type Outcome struct {
	Kind    Kind   `json:"kind"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Code    string `json:"fault_code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Valid builds a positive match, substituting placeholders for empty fields.
func Valid(name, address string) Outcome {
	return Outcome{Kind: KindValid, Name: orDefault(name, NameUnavailable), Address: orDefault(address, AddressUnavailable)}
}

// Invalid builds a definite non-match, substituting placeholders for empty fields.
func Invalid(name, address string) Outcome {
	return Outcome{Kind: KindInvalid, Name: orDefault(name, NameUnavailable), Address: orDefault(address, AddressUnavailable)}
}

// ServiceFault wraps a SOAP fault reported by VIES.
func ServiceFault(code string) Outcome {
	return Outcome{Kind: KindServiceFault, Code: code}
}

// TransportError wraps a network, timeout or HTTP-level failure.
func TransportError(message string) Outcome {
	return Outcome{Kind: KindTransportError, Message: message}
}

// IsServerBusy reports the one fault the transport retries.
func (o Outcome) IsServerBusy() bool {
	return o.Kind == KindServiceFault && o.Code == FaultServerBusy
}

// IsError reports whether the outcome carries no validity verdict.
func (o Outcome) IsError() bool {
	return o.Kind == KindServiceFault || o.Kind == KindTransportError
}

// Status is the user-facing label for the outcome.
func (o Outcome) Status() string {
	switch o.Kind {
	case KindValid:
		return "Valid"
	case KindInvalid:
		return "Invalid"
	case KindServiceFault:
		return o.Code
	default:
		return "Error: " + o.Message
	}
}

// Details joins name and address for single-column display.
func (o Outcome) Details() string {
	if o.IsError() {
		return ""
	}
	parts := make([]string, 0, 2)
	if o.Name != NameUnavailable {
		parts = append(parts, o.Name)
	}
	if o.Address != AddressUnavailable {
		parts = append(parts, o.Address)
	}
	if len(parts) == 0 {
		return NameUnavailable
	}
	return strings.Join(parts, " – ")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
