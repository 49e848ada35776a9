package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// Client talks to the habitauth service. Its methods are unauthenticated;
// use a Session for calls that need an access token.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}
