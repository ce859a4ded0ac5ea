package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// IdentityAPIStore reads and writes the public metadata of a user held by
// the hosted identity provider through its backend REST API.
type IdentityAPIStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type identityUser struct {
	ID             string         `json:"id"`
	PublicMetadata map[string]any `json:"public_metadata"`
}

type metadataPatch struct {
	PublicMetadata Metadata `json:"public_metadata"`
}

func NewIdentityAPIStore(baseURL, apiKey string, timeout time.Duration) *IdentityAPIStore {
	return &IdentityAPIStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Get fetches the user and returns its string-valued public metadata
func (s *IdentityAPIStore) Get(ctx context.Context, userID string) (Metadata, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userURL(userID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile request: %w", err)
	}

	var user identityUser
	if err := s.do(req, &user); err != nil {
		return nil, err
	}

	fields := make(Metadata, len(user.PublicMetadata))
	for k, v := range user.PublicMetadata {
		if str, ok := v.(string); ok {
			fields[k] = str
		}
	}
	return fields, nil
}

// Update sends one metadata patch; the provider merges it into the profile.
func (s *IdentityAPIStore) Update(ctx context.Context, userID string, fields Metadata) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	body, err := json.Marshal(metadataPatch{PublicMetadata: fields})
	if err != nil {
		return fmt.Errorf("failed to marshal metadata patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, s.userURL(userID)+"/metadata", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build metadata request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return s.do(req, nil)
}

func (s *IdentityAPIStore) userURL(userID string) string {
	return s.baseURL + "/v1/users/" + url.PathEscape(userID)
}

func (s *IdentityAPIStore) do(req *http.Request, out any) error {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("identity api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode identity api response: %w", err)
	}
	return nil
}
