package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"routemap/internal/domain"
)

type Loader struct {
	url        string
	httpClient *http.Client
	validate   *validator.Validate
}

func NewLoader(url string, httpClient *http.Client) *Loader {
	return &Loader{
		url:        url,
		httpClient: httpClient,
		validate:   validator.New(),
	}
}

// Load fetches and validates the route manifest.
func (l *Loader) Load(ctx context.Context) (*domain.Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var m domain.Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	if err := l.validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	seen := make(map[string]struct{}, len(m.Routes))
	for _, r := range m.Routes {
		if _, dup := seen[r.RelationID]; dup {
			return nil, fmt.Errorf("invalid manifest: duplicate relationId %s", r.RelationID)
		}
		seen[r.RelationID] = struct{}{}
	}

	return &m, nil
}
