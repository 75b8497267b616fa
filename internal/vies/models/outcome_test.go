package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeConstructorsApplyPlaceholders(t *testing.T) {
	v := Valid("", "")
	assert.Equal(t, KindValid, v.Kind)
	assert.Equal(t, NameUnavailable, v.Name)
	assert.Equal(t, AddressUnavailable, v.Address)

	i := Invalid("ACME NV", "")
	assert.Equal(t, KindInvalid, i.Kind)
	assert.Equal(t, "ACME NV", i.Name)
	assert.Equal(t, AddressUnavailable, i.Address)
}

func TestOutcomeStatus(t *testing.T) {
	assert.Equal(t, "Valid", Valid("a", "b").Status())
	assert.Equal(t, "Invalid", Invalid("", "").Status())
	assert.Equal(t, FaultServerBusy, ServiceFault(FaultServerBusy).Status())
	assert.Equal(t, "env:Client", ServiceFault("env:Client").Status())
	assert.Equal(t, "Error: Timeout after 10s", TransportError("Timeout after 10s").Status())
}

func TestOutcomeClassification(t *testing.T) {
	assert.True(t, ServiceFault(FaultServerBusy).IsServerBusy())
	assert.False(t, ServiceFault(FaultRetriesExhausted).IsServerBusy())
	assert.False(t, TransportError(FaultServerBusy).IsServerBusy())

	assert.True(t, TransportError("x").IsError())
	assert.True(t, ServiceFault("x").IsError())
	assert.False(t, Valid("", "").IsError())
}

func TestOutcomeDetails(t *testing.T) {
	assert.Equal(t, "ACME NV – Main St 1 1000 Brussels", Valid("ACME NV", "Main St 1 1000 Brussels").Details())
	assert.Equal(t, "ACME NV", Valid("ACME NV", "").Details())
	assert.Equal(t, NameUnavailable, Invalid("", "").Details())
	assert.Empty(t, TransportError("boom").Details())
}
