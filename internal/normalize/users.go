// ABOUTME: Normalization of user and audit log records for the admin views
// ABOUTME: Non-object list items are dropped; every rendered field gets a default

package normalize

import (
	"fmt"
	"strings"
)

// User is a render-safe user record.
type User struct {
	ID              string
	FullName        string
	Email           string
	Role            string
	Class           string
	CoursesTeaching []string
	LinkedStudentID string
}

// NormalizeUser accepts a raw JSON object or an already normalized User.
// It returns false when v is neither.
func NormalizeUser(v any) (User, bool) {
	switch t := v.(type) {
	case User:
		return t.withDefaults(), true
	case *User:
		if t == nil {
			return User{}, false
		}
		return t.withDefaults(), true
	}

	obj, ok := object(v)
	if !ok {
		return User{}, false
	}
	u := User{
		ID:              first(obj, "", "userId", "_id", "id"),
		FullName:        Text(obj["fullName"], ""),
		Email:           email(obj),
		Role:            Text(obj["role"], ""),
		Class:           Text(obj["class"], ""),
		CoursesTeaching: Strings(obj["coursesTeaching"]),
		LinkedStudentID: Text(obj["linkedStudentId"], ""),
	}
	return u.withDefaults(), true
}

// email prefers a decrypted address, then a plain string. A structured
// (encrypted) value is never shown.
func email(obj map[string]any) string {
	if s, ok := obj["decryptedEmail"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	switch t := obj["email"].(type) {
	case map[string]any, []any:
		return Protected
	case string:
		return strings.TrimSpace(t)
	}
	return ""
}

func (u User) withDefaults() User {
	if u.ID == "" || u.ID == Protected {
		u.ID = UnknownID
	}
	if u.FullName == "" {
		u.FullName = UnnamedUser
	}
	if u.Email == "" {
		u.Email = NotAvailable
	}
	if u.Role == "" {
		u.Role = UnknownRole
	}
	if u.Class == "" {
		u.Class = NotAvailable
	}
	if u.LinkedStudentID == "" {
		u.LinkedStudentID = NotAvailable
	}
	if u.CoursesTeaching == nil {
		u.CoursesTeaching = []string{}
	}
	return u
}

// EmailEditable reports whether the email can be prefilled into an edit form.
func (u User) EmailEditable() bool {
	return u.Email != Protected && u.Email != NotAvailable
}

// Users normalizes a raw list, skipping items that are not objects.
func Users(items []any) []User {
	out := make([]User, 0, len(items))
	for _, item := range items {
		if u, ok := NormalizeUser(item); ok {
			out = append(out, u)
		}
	}
	return out
}

// LogEntry is a render-safe audit log record.
type LogEntry struct {
	ID        string
	Timestamp string
	SubjectID string
	Role      string
	Action    string
}

// NormalizeLog accepts a raw JSON object or a LogEntry. index is the item's
// position in the server's list and provides the fallback id.
func NormalizeLog(v any, index int) (LogEntry, bool) {
	if e, ok := v.(LogEntry); ok {
		return e.withDefaults(index), true
	}
	obj, ok := object(v)
	if !ok {
		return LogEntry{}, false
	}
	e := LogEntry{
		ID:        first(obj, "", "_id", "id"),
		Timestamp: Text(obj["timestamp"], ""),
		SubjectID: Text(obj["userId"], ""),
		Role:      Text(obj["role"], ""),
		Action:    Text(obj["action"], ""),
	}
	return e.withDefaults(index), true
}

func (e LogEntry) withDefaults(index int) LogEntry {
	if e.ID == "" || e.ID == Protected {
		e.ID = fmt.Sprintf("log-%d", index)
	}
	if e.Timestamp == "" || e.Timestamp == Protected {
		e.Timestamp = NotAvailable
	}
	if e.SubjectID == "" {
		e.SubjectID = NotAvailable
	}
	if e.Role == "" {
		e.Role = NotAvailable
	}
	if e.Action == "" {
		e.Action = UnknownAction
	}
	return e
}

// Logs normalizes a raw list, skipping items that are not objects.
func Logs(items []any) []LogEntry {
	out := make([]LogEntry, 0, len(items))
	for i, item := range items {
		if e, ok := NormalizeLog(item, i); ok {
			out = append(out, e)
		}
	}
	return out
}

// VerifyResult is one entry of an integrity check.
type VerifyResult struct {
	ID           string
	Timestamp    string
	SubjectID    string
	Action       string
	Valid        bool
	StoredHash   string
	ExpectedHash string
}

// Verification is the render-safe integrity check summary.
type Verification struct {
	TotalLogs   int
	ValidLogs   int
	InvalidLogs int
	Results     []VerifyResult
}

// Intrusion reports whether any log failed verification.
func (v Verification) Intrusion() bool {
	return v.InvalidLogs > 0
}

// NormalizeVerification accepts a raw JSON object or a Verification.
func NormalizeVerification(v any) (Verification, bool) {
	if ver, ok := v.(Verification); ok {
		if ver.Results == nil {
			ver.Results = []VerifyResult{}
		}
		return ver, true
	}
	obj, ok := object(v)
	if !ok {
		return Verification{}, false
	}
	ver := Verification{
		TotalLogs:   Count(obj["totalLogs"]),
		ValidLogs:   Count(obj["validLogs"]),
		InvalidLogs: Count(obj["invalidLogs"]),
		Results:     []VerifyResult{},
	}
	if list, ok := obj["results"].([]any); ok {
		for i, item := range list {
			r, ok := object(item)
			if !ok {
				continue
			}
			res := VerifyResult{
				ID:           first(r, fmt.Sprintf("log-%d", i), "id", "_id"),
				Timestamp:    Text(r["timestamp"], NotAvailable),
				SubjectID:    Text(r["userId"], NotAvailable),
				Action:       Text(r["action"], NotAvailable),
				Valid:        Bool(r["isValid"]),
				StoredHash:   Text(r["storedHash"], MissingHash),
				ExpectedHash: Text(r["expectedHash"], UnknownHash),
			}
			ver.Results = append(ver.Results, res)
		}
	}
	return ver, true
}
