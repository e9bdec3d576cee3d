package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_equivalentForms(t *testing.T) {
	inputs := []string{"0712345678", "712345678", "254712345678", "+254 712 345 678", "+254-712-345678"}
	for _, in := range inputs {
		assert.Equal(t, "+254712345678", Normalize(in), "input %q", in)
	}
}

func TestMSISDN(t *testing.T) {
	assert.Equal(t, "254712345678", MSISDN("0712345678"))
	assert.Equal(t, "254112345678", MSISDN("112345678"))
	assert.Equal(t, "254", MSISDN(""))
}

func TestParseMSISDN(t *testing.T) {
	msisdn, err := ParseMSISDN("0712 345 678")
	require.NoError(t, err)
	assert.Equal(t, "254712345678", msisdn)

	_, err = ParseMSISDN("0812345678")
	assert.ErrorIs(t, err, ErrInvalidPhone, "prefix 8 is not a mobile range")

	_, err = ParseMSISDN("07123")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "+2*********78", Mask("+254712345678"))
	assert.Equal(t, "****", Mask("1234"))
}

func TestParse(t *testing.T) {
	e164, err := Parse("0712 345 678")
	require.NoError(t, err)
	assert.Equal(t, "+254712345678", e164)

	for _, in := range []string{"abc", "12", "+1 555 123 4567", ""} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidPhone, "input %q", in)
	}
}
