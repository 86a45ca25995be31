package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendText_Success(t *testing.T) {
	var got textMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/PHONE/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIBase: srv.URL, PhoneNumberID: "PHONE", AccessToken: "tok"})
	id, err := c.SendText(context.Background(), "+15550001", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", id)
	assert.Equal(t, "15550001", got.To)
	assert.Equal(t, "hello", got.Text.Body)
	assert.Equal(t, "whatsapp", got.MessagingProduct)
}

func TestSendText_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid recipient","code":100}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIBase: srv.URL, PhoneNumberID: "PHONE", AccessToken: "tok"})
	_, err := c.SendText(context.Background(), "1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestSendText_NotConfigured(t *testing.T) {
	_, err := NewClient(Config{}).SendText(context.Background(), "1", "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
