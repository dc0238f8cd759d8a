package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"propdash/pkg/model"
)

const (
	loginPath    = "/api/v1/auth/login"
	mePath       = "/api/v1/auth/me"
	listingsPath = "/api/v1/listings"

	IdempotencyHeader = "Idempotency-Key"
)

type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      model.Identity `json:"user"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// ListingClient is a typed client for the listing API.
type ListingClient struct {
	httpClient *HttpClient
}

func NewListingClient(baseURL, token string) *ListingClient {
	c := NewHttpClient(baseURL)
	c.Token = token
	return &ListingClient{httpClient: c}
}

func (c *ListingClient) HTTP() *HttpClient {
	return c.httpClient
}

// Login exchanges credentials for a session and uses its token from then on.
func (c *ListingClient) Login(ctx context.Context, username, password string) (*Session, error) {
	resp, err := c.httpClient.POST(ctx, loginPath, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	session, err := decode[Session](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	c.httpClient.Token = session.Token
	return &session, nil
}

func (c *ListingClient) Me(ctx context.Context) (model.Identity, error) {
	resp, err := c.httpClient.GET(ctx, mePath)
	if err != nil {
		return model.Identity{}, err
	}
	return decode[model.Identity](resp, http.StatusOK)
}

func (c *ListingClient) List(ctx context.Context) ([]model.Listing, error) {
	resp, err := c.httpClient.GET(ctx, listingsPath)
	if err != nil {
		return nil, err
	}
	return decode[[]model.Listing](resp, http.StatusOK)
}

func (c *ListingClient) Get(ctx context.Context, id string) (*model.Listing, error) {
	resp, err := c.httpClient.GET(ctx, listingPath(id))
	if err != nil {
		return nil, err
	}
	return decodeListing(resp, http.StatusOK)
}

// Create sends idempotencyKey when non-empty so a retried create is not duplicated.
func (c *ListingClient) Create(ctx context.Context, fields model.ListingFields, idempotencyKey string) (*model.Listing, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{IdempotencyHeader: idempotencyKey}
	}
	resp, err := c.httpClient.POSTWithHeaders(ctx, listingsPath, fields, headers)
	if err != nil {
		return nil, err
	}
	return decodeListing(resp, http.StatusCreated)
}

func (c *ListingClient) Update(ctx context.Context, id string, fields model.ListingFields) (*model.Listing, error) {
	resp, err := c.httpClient.PUT(ctx, listingPath(id), fields)
	if err != nil {
		return nil, err
	}
	return decodeListing(resp, http.StatusOK)
}

func (c *ListingClient) SetStatus(ctx context.Context, id string, status model.Status) (*model.Listing, error) {
	resp, err := c.httpClient.PATCH(ctx, listingPath(id)+"/status", model.StatusChange{Status: status})
	if err != nil {
		return nil, err
	}
	return decodeListing(resp, http.StatusOK)
}

func (c *ListingClient) Delete(ctx context.Context, id string) error {
	resp, err := c.httpClient.DELETE(ctx, listingPath(id))
	if err != nil {
		return err
	}
	_, err = decode[struct {
		ID      string `json:"id"`
		Deleted bool   `json:"deleted"`
	}](resp, http.StatusOK)
	return err
}

func listingPath(id string) string {
	return listingsPath + "/id/" + url.PathEscape(id)
}

func decodeListing(resp *Response, want int) (*model.Listing, error) {
	listing, err := decode[model.Listing](resp, want)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func decode[T any](resp *Response, want int) (T, error) {
	var zero T
	if resp.StatusCode != want {
		return zero, NewAPIError(resp)
	}
	var env envelope[T]
	if err := resp.DecodeJSON(&env); err != nil {
		return zero, fmt.Errorf("failed to decode response: %w", err)
	}
	return env.Data, nil
}
