package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chaterrors "ambassador-chat/pkg/errors"

	"github.com/google/uuid"
)

// HTTPCollaborator talks to the marketplace backend that owns profiles
// and negotiation links. It implements both IdentityResolver and
// LinkCleaner.
type HTTPCollaborator struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPCollaborator(baseURL, token string) *HTTPCollaborator {
	return &HTTPCollaborator{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *HTTPCollaborator) Resolve(ctx context.Context, userID uuid.UUID) (DisplayIdentity, error) {
	url := fmt.Sprintf("%s/internal/profiles/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return DisplayIdentity{}, err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return DisplayIdentity{}, fmt.Errorf("%w: profile lookup: %v", chaterrors.ErrDependency, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var identity DisplayIdentity
		if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
			return DisplayIdentity{}, fmt.Errorf("%w: decoding profile: %v", chaterrors.ErrDependency, err)
		}
		return identity, nil
	case http.StatusNotFound:
		return DisplayIdentity{}, chaterrors.ErrNotFound
	default:
		return DisplayIdentity{}, fmt.Errorf("%w: profile lookup returned %d", chaterrors.ErrDependency, resp.StatusCode)
	}
}

// RemoveLinksForRoom asks the backend to drop every negotiation link
// that references the room. A 404 counts as success so retries after a
// partial failure stay idempotent.
func (c *HTTPCollaborator) RemoveLinksForRoom(ctx context.Context, roomID uuid.UUID) error {
	url := fmt.Sprintf("%s/internal/rooms/%s/links", c.baseURL, roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("removing room links: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("removing room links returned %d", resp.StatusCode)
	}
}

func (c *HTTPCollaborator) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("X-Internal-Token", c.token)
	}
}
