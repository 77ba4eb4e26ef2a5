package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookApp() *fiber.App {
	app := fiber.New()
	app.Post("/webhook/whatsapp", ValidateTwilioSignature(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func webhookRequest(form url.Values, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "http://example.com/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	return req
}

func TestValidateTwilioSignatureAcceptsTwilioScheme(t *testing.T) {
	t.Setenv("TWILIO_AUTH_TOKEN", "token123")

	form := url.Values{}
	form.Set("Body", "hi")
	form.Set("From", "whatsapp:+100")

	// Twilio signs the public URL plus the form parameters concatenated
	// in key order, HMAC-SHA1, base64.
	data := "http://example.com/webhook/whatsapp" + "Body" + "hi" + "From" + "whatsapp:+100"
	mac := hmac.New(sha1.New, []byte("token123"))
	mac.Write([]byte(data))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	resp, err := webhookApp().Test(webhookRequest(form, signature))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestValidateTwilioSignatureRejectsBadSignature(t *testing.T) {
	t.Setenv("TWILIO_AUTH_TOKEN", "token123")

	form := url.Values{}
	form.Set("Body", "hi")

	resp, err := webhookApp().Test(webhookRequest(form, "bm90LXRoZS1zaWduYXR1cmU="))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestValidateTwilioSignatureRejectsMissingHeader(t *testing.T) {
	t.Setenv("TWILIO_AUTH_TOKEN", "token123")

	resp, err := webhookApp().Test(webhookRequest(url.Values{}, ""))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
