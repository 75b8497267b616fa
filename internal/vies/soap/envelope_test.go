package soap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vatgate/internal/vies/models"
)

func TestEncode(t *testing.T) {
	id := models.VatIdentifier{CountryCode: "DE", Number: "123456789"}

	t.Run("checkVat carries requester identity", func(t *testing.T) {
		body, err := Encode(id, OperationCheckVat, DefaultRequester)
		require.NoError(t, err)
		s := string(body)
		assert.Contains(t, s, `xmlns:ins0="urn:ec.europa.eu:taxud:vies:services:checkVat:types"`)
		assert.Contains(t, s, "<ins0:checkVat>")
		assert.Contains(t, s, "<ins0:countryCode>DE</ins0:countryCode>")
		assert.Contains(t, s, "<ins0:vatNumber>123456789</ins0:vatNumber>")
		assert.Contains(t, s, "<ins0:requesterCountryCode>NL</ins0:requesterCountryCode>")
		assert.Contains(t, s, "<ins0:requesterVatNumber>NL009444452B01</ins0:requesterVatNumber>")
	})

	t.Run("checkVatApprox omits requester", func(t *testing.T) {
		body, err := Encode(id, OperationCheckVatApprox, DefaultRequester)
		require.NoError(t, err)
		s := string(body)
		assert.Contains(t, s, "<ins0:checkVatApprox>")
		assert.NotContains(t, s, "requesterCountryCode")
	})

	t.Run("empty operation defaults to checkVat", func(t *testing.T) {
		body, err := Encode(id, "", Requester{})
		require.NoError(t, err)
		assert.Contains(t, string(body), "<ins0:checkVat>")
		assert.NotContains(t, string(body), "requesterVatNumber")
	})

	t.Run("values are escaped", func(t *testing.T) {
		body, err := Encode(models.VatIdentifier{CountryCode: "FR", Number: "<x>&1"}, OperationCheckVat, Requester{})
		require.NoError(t, err)
		assert.Contains(t, string(body), "<ins0:vatNumber>&lt;x&gt;&amp;1</ins0:vatNumber>")
	})
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("checkVatApprox")
	require.NoError(t, err)
	assert.Equal(t, OperationCheckVatApprox, op)

	_, err = ParseOperation("checkEverything")
	assert.Error(t, err)
}
