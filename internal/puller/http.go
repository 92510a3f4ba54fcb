package puller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/chaintracker/chain-tracker/internal/constants"
)

// maxBodySize bounds the size of a response body read by Fetch.
const maxBodySize = 10 << 20

// HTTPStatusError is returned by Fetch when the server answers with a non 2xx status.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return e.Status
}

// Fetch issues a GET request with the tracker's User-Agent and returns the response body.
//
// The request URL, which may carry credentials, is stripped from transport errors.
func Fetch(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %v", err)
	}
	req.Header.Set("User-Agent", constants.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		var uErr *url.Error
		if errors.As(err, &uErr) {
			return nil, uErr.Err
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return body, nil
}
