package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
)

type samplePayload struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,inphone"`
}

func decodeSample(t *testing.T, body string) (samplePayload, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	return payload, err
}

func TestDecodeJSONBodyValid(t *testing.T) {
	payload, err := decodeSample(t, `{"name":"Asha","email":"asha@example.com","phone":"+91 98765 43210"}`)

	require.NoError(t, err)
	assert.Equal(t, "Asha", payload.Name)
}

func TestDecodeJSONBodyUsesJSONFieldNames(t *testing.T) {
	_, err := decodeSample(t, `{"name":"Asha","email":"not-an-email","phone":"9876543210"}`)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "email")
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	_, err := decodeSample(t, `{"name":"Asha","email":"asha@example.com","phone":"9876543210","surprise":true}`)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestPhoneRuleRejectsLettersAndShortNumbers(t *testing.T) {
	for _, phone := range []string{"call-me-maybe", "12345", "98765x43210"} {
		_, err := decodeSample(t, `{"name":"Asha","email":"asha@example.com","phone":"`+phone+`"}`)

		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "phone %q should be rejected", phone)
		details, ok := typed.Details().(map[string]string)
		require.True(t, ok)
		assert.Contains(t, details, "phone")
	}
}

func TestPhoneRuleAcceptsSpacedAndDashedNumbers(t *testing.T) {
	for _, phone := range []string{"9876543210", "+91 98765 43210", "98765-43210"} {
		_, err := decodeSample(t, `{"name":"Asha","email":"asha@example.com","phone":"`+phone+`"}`)
		assert.NoError(t, err, "phone %q should be accepted", phone)
	}
}

func TestSanitizeStringStripsControlCharacters(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello\x00\x07  "))
	assert.Equal(t, "line\nbreak", SanitizeString("line\nbreak"))
}
