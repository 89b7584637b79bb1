// ABOUTME: Admin user management endpoints
// ABOUTME: List, detail, update, delete, login QR generation, and ID card rendering

package api

import (
	"context"
	"fmt"
	"net/http"
)

// ListUsers returns the raw user records.
func (c *Client) ListUsers(ctx context.Context) ([]any, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/users", session: true})
	if err != nil {
		return nil, err
	}
	return decodeList(data)
}

// GetUser returns one raw user record.
func (c *Client) GetUser(ctx context.Context, id string) (map[string]any, error) {
	p, err := pathID(id)
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/users/" + p, session: true})
	if err != nil {
		return nil, err
	}
	return decodeObject(data)
}

// UpdateUser sends body verbatim and returns the server's answer.
func (c *Client) UpdateUser(ctx context.Context, id string, body map[string]any) (any, error) {
	p, err := pathID(id)
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, request{method: http.MethodPut, path: "/users/" + p, body: body, session: true})
	if err != nil {
		return nil, err
	}
	return decodeAny(data)
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	p, err := pathID(id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{method: http.MethodDelete, path: "/users/" + p, session: true})
	return err
}

// GenerateQR asks the server to issue a fresh login QR for the user.
func (c *Client) GenerateQR(ctx context.Context, id string) error {
	p, err := pathID(id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{method: http.MethodPost, path: "/users/generate-qr/" + p, session: true})
	return err
}

// IDCard returns the rendered ID card markup for a user.
func (c *Client) IDCard(ctx context.Context, id string) (string, error) {
	p, err := pathID(id)
	if err != nil {
		return "", err
	}
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/users/id-card/" + p, session: true})
	if err != nil {
		return "", err
	}
	obj, err := decodeObject(data)
	if err != nil {
		return "", err
	}
	html, ok := obj["html"].(string)
	if !ok || html == "" {
		return "", fmt.Errorf("%w: id card has no html", ErrShape)
	}
	return html, nil
}
