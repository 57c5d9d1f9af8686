package fetch

import (
	"errors"
	"io"
	"net/http"

	"golang.org/x/xerrors"
)

// ErrUnexpectedStatus is returned when the remote answers with
// anything else than a 200
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// Transport abstracts the HTTP layer of the fetch client, so tests
// can substitute a canned advertisement and pack without a network
type Transport interface {
	// Get issues a GET request and returns the response body
	Get(url string) (io.ReadCloser, error)
	// Post issues a POST request and returns the response body
	Post(url, contentType string, body io.Reader) (io.ReadCloser, error)
}

// httpTransport implements Transport on top of net/http
type httpTransport struct {
	client *http.Client
}

// NewHTTPTransport returns a Transport using the default HTTP client
func NewHTTPTransport() Transport {
	return &httpTransport{
		client: http.DefaultClient,
	}
}

func (t *httpTransport) Get(url string) (io.ReadCloser, error) {
	resp, err := t.client.Get(url)
	if err != nil {
		return nil, xerrors.Errorf("GET %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck // the status is the error we care about
		return nil, xerrors.Errorf("GET %s returned %s: %w", url, resp.Status, ErrUnexpectedStatus)
	}
	return resp.Body, nil
}

func (t *httpTransport) Post(url, contentType string, body io.Reader) (io.ReadCloser, error) {
	resp, err := t.client.Post(url, contentType, body)
	if err != nil {
		return nil, xerrors.Errorf("POST %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck // the status is the error we care about
		return nil, xerrors.Errorf("POST %s returned %s: %w", url, resp.Status, ErrUnexpectedStatus)
	}
	return resp.Body, nil
}
