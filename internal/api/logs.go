// ABOUTME: Audit log endpoints and query composition for log filters
// ABOUTME: Blank filter fields are omitted from the query rather than sent empty

package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// LogFilter narrows the audit log listing. All fields are optional.
type LogFilter struct {
	SubjectID string
	Role      string
	Action    string
	From      string
	To        string
}

// Query returns the filter as URL values. Blank fields are left out.
func (f LogFilter) Query() url.Values {
	q := url.Values{}
	add := func(key, v string) {
		if v = strings.TrimSpace(v); v != "" {
			q.Set(key, v)
		}
	}
	add("userId", f.SubjectID)
	add("role", f.Role)
	add("action", f.Action)
	add("from", f.From)
	add("to", f.To)
	return q
}

// Empty reports whether no field would be sent.
func (f LogFilter) Empty() bool {
	return len(f.Query()) == 0
}

// ListLogs returns raw log entries matching filter.
func (c *Client) ListLogs(ctx context.Context, filter LogFilter) ([]any, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/logs", query: filter.Query(), session: true})
	if err != nil {
		return nil, err
	}
	return decodeList(data)
}

// VerifyLogs runs the server-side integrity check over the audit chain.
func (c *Client) VerifyLogs(ctx context.Context) (map[string]any, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/logs/verify", session: true})
	if err != nil {
		return nil, err
	}
	return decodeObject(data)
}
