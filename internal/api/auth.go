// ABOUTME: Identity endpoints: credential login, proof-token login, and registration
// ABOUTME: Login responses are validated into LoginResult before a session is created

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// LoginResult is the successful answer to either login endpoint.
type LoginResult struct {
	Token  string
	Role   string
	UserID string
}

// Registration is the admin-side user creation form.
type Registration struct {
	FullName        string
	Email           string
	Password        string
	Role            string
	StudentClass    string
	CoursesTeaching []string
	LinkedStudentID string
}

// payload maps the form onto the wire body. StudentClass travels as "class";
// role-specific fields are only sent for their role.
func (r Registration) payload() map[string]any {
	body := map[string]any{
		"fullName": r.FullName,
		"email":    r.Email,
		"password": r.Password,
		"role":     r.Role,
		"class":    r.StudentClass,
	}
	if r.Role == "Teacher" && len(r.CoursesTeaching) > 0 {
		body["coursesTeaching"] = r.CoursesTeaching
	}
	if r.Role == "Parent" && r.LinkedStudentID != "" {
		body["linkedStudentId"] = r.LinkedStudentID
	}
	return body
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	data, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return LoginResult{}, err
	}
	return decodeLogin(data)
}

// LoginQR exchanges a scanned proof-token payload for a session token.
func (c *Client) LoginQR(ctx context.Context, payload string) (LoginResult, error) {
	data, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/qr",
		body:   map[string]string{"qr": payload},
	})
	if err != nil {
		return LoginResult{}, err
	}
	return decodeLogin(data)
}

// Register creates a user and returns the created record.
func (c *Client) Register(ctx context.Context, r Registration) (map[string]any, error) {
	data, err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/auth/register",
		body:    r.payload(),
		session: true,
	})
	if err != nil {
		return nil, err
	}
	return decodeObject(data)
}

func decodeLogin(data []byte) (LoginResult, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return LoginResult{}, err
	}
	res := LoginResult{
		Token:  scalar(obj["token"]),
		Role:   scalar(obj["role"]),
		UserID: scalar(obj["userId"]),
	}
	if res.Token == "" || res.Role == "" || res.UserID == "" {
		return LoginResult{}, fmt.Errorf("%w: login response missing token, role, or userId", ErrShape)
	}
	return res, nil
}

// scalar renders strings and numbers; anything else is empty.
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return fmt.Sprintf("%v", t)
	}
	return ""
}
