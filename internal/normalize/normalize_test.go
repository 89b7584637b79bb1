// ABOUTME: Tests for record normalization defaults, placeholders, and idempotence
// ABOUTME: Raw inputs are decoded with UseNumber like the api client does

package normalize

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestNormalizeUserEncryptedEmail(t *testing.T) {
	u, ok := NormalizeUser(decode(t, `{"userId":"u1","email":{"enc":"x"}}`))
	require.True(t, ok)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, Protected, u.Email)
	assert.Equal(t, UnnamedUser, u.FullName)
	assert.Equal(t, UnknownRole, u.Role)
	assert.False(t, u.EmailEditable())
}

func TestNormalizeUserEmailPreference(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"decrypted wins", `{"email":{"iv":"a"},"decryptedEmail":"a@x.edu"}`, "a@x.edu"},
		{"plain string", `{"email":"b@x.edu"}`, "b@x.edu"},
		{"array", `{"email":["x"]}`, Protected},
		{"null", `{"email":null}`, NotAvailable},
		{"number", `{"email":5}`, NotAvailable},
		{"blank", `{"email":"  "}`, NotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, ok := NormalizeUser(decode(t, tt.raw))
			require.True(t, ok)
			assert.Equal(t, tt.want, u.Email)
		})
	}
}

func TestNormalizeUserFields(t *testing.T) {
	u, ok := NormalizeUser(decode(t, `{
		"userId": 42,
		"fullName": {"first":"x"},
		"role": "Teacher",
		"coursesTeaching": ["CS101", {"x":1}, " ", "MA200"],
		"class": null
	}`))
	require.True(t, ok)
	assert.Equal(t, "42", u.ID)
	assert.Equal(t, Protected, u.FullName)
	assert.Equal(t, "Teacher", u.Role)
	assert.Equal(t, []string{"CS101", "MA200"}, u.CoursesTeaching)
	assert.Equal(t, NotAvailable, u.Class)

	u, _ = NormalizeUser(decode(t, `{"coursesTeaching":"CS101, MA200,"}`))
	assert.Equal(t, []string{"CS101", "MA200"}, u.CoursesTeaching)
	assert.Equal(t, UnknownID, u.ID)
}

func TestUsersSkipsNonObjects(t *testing.T) {
	users := Users(decode(t, `[{"userId":"a"}, "junk", null, 3, {"userId":"b"}]`).([]any))
	require.Len(t, users, 2)
	assert.Equal(t, "a", users[0].ID)
	assert.Equal(t, "b", users[1].ID)

	assert.NotNil(t, Users(nil))
}

func TestLogsDefaults(t *testing.T) {
	logs := Logs(decode(t, `[
		{"_id":"x1","timestamp":"2024-05-01T10:00:00Z","userId":"u1","role":"Admin","action":"LOGIN"},
		"junk",
		{}
	]`).([]any))
	require.Len(t, logs, 2)
	assert.Equal(t, "x1", logs[0].ID)
	assert.Equal(t, "LOGIN", logs[0].Action)

	assert.Equal(t, "log-2", logs[1].ID)
	assert.Equal(t, NotAvailable, logs[1].Timestamp)
	assert.Equal(t, NotAvailable, logs[1].SubjectID)
	assert.Equal(t, NotAvailable, logs[1].Role)
	assert.Equal(t, UnknownAction, logs[1].Action)
}

func TestIdempotence(t *testing.T) {
	rawUsers := []string{
		`{"userId":"u1","email":{"enc":"x"}}`,
		`{}`,
		`{"userId":{"a":1},"fullName":"  ","role":null,"coursesTeaching":5}`,
		`{"decryptedEmail":"d@x.edu","linkedStudentId":"s9"}`,
	}
	for _, raw := range rawUsers {
		once, ok := NormalizeUser(decode(t, raw))
		require.True(t, ok)
		twice, ok := NormalizeUser(once)
		require.True(t, ok)
		assert.Equal(t, once, twice, raw)
	}

	for i, raw := range []string{`{}`, `{"id":"l1","timestamp":{"$date":1}}`} {
		once, _ := NormalizeLog(decode(t, raw), i)
		twice, _ := NormalizeLog(once, i+10)
		assert.Equal(t, once, twice)
	}

	rec, _ := NormalizeStudentRecord(decode(t, `{"courses":[{"courseCode":"CS1"},"MA2",7,{"name":"no code"}]}`))
	again, _ := NormalizeStudentRecord(rec)
	assert.Equal(t, rec, again)

	kids := Children(decode(t, `[{"userId":"s1","courses":[{"courseCode":"CS1","grade":"F"}]},{}]`))
	assert.Equal(t, kids, Children(kids))

	ver, _ := NormalizeVerification(decode(t, `{"totalLogs":"3","invalidLogs":-2,"results":[{"isValid":true},"x"]}`))
	again2, _ := NormalizeVerification(ver)
	assert.Equal(t, ver, again2)

	entry, _ := NormalizeRosterEntry(decode(t, `{"id":"s1"}`))
	entry2, _ := NormalizeRosterEntry(entry)
	assert.Equal(t, entry, entry2)
}

func TestCourses(t *testing.T) {
	courses := Courses(decode(t, `["CS101", {"courseCode":"MA200","courseName":"Calculus"}, {"courseName":"orphan"}, {"code":{"x":1}}, 12]`).([]any))
	require.Len(t, courses, 3)
	assert.Equal(t, Course{Code: "CS101", Name: "CS101"}, courses[0])
	assert.Equal(t, Course{Code: "MA200", Name: "Calculus"}, courses[1])
	assert.Equal(t, "12", courses[2].Code)
}

func TestStudentRecord(t *testing.T) {
	rec, ok := NormalizeStudentRecord(decode(t, `{
		"studentId":"s1","studentName":"Ada","class":"10A",
		"courses":[{"courseCode":"CS101","courseName":"Intro","grade":"A"},{"courseCode":"MA200"}]
	}`))
	require.True(t, ok)
	assert.Equal(t, "Ada", rec.StudentName)
	require.Len(t, rec.Courses, 2)
	assert.Equal(t, "A", rec.Courses[0].Grade)
	assert.Equal(t, NotGraded, rec.Courses[1].Grade)
	assert.True(t, rec.Registered("MA200"))
	assert.False(t, rec.Registered("PH100"))

	_, ok = NormalizeStudentRecord(decode(t, `[]`))
	assert.False(t, ok)
}

func TestCourseGradeStatus(t *testing.T) {
	tests := map[string]string{
		"A":              "PASSED",
		"D":              "PASSED",
		"F":              "FAILED",
		NotGraded:        "PENDING",
		"Not graded yet": "PENDING",
		"":               "PENDING",
	}
	for grade, want := range tests {
		g := CourseGrade{Course: Course{Code: "X"}, Grade: grade}
		assert.Equal(t, want, g.Status(), grade)
	}
}

func TestRosterRequiresID(t *testing.T) {
	roster := Roster(decode(t, `[{"userId":"s1","fullName":"Ada"},{"id":"s2","name":"Bo","grade":"B"},{"fullName":"ghost"}]`).([]any))
	require.Len(t, roster, 2)
	assert.Equal(t, NotGraded, roster[0].Grade)
	assert.Equal(t, "Bo", roster[1].FullName)
	assert.Equal(t, "B", roster[1].Grade)
}

func TestChildrenSingleOrArray(t *testing.T) {
	single := Children(decode(t, `{"userId":"s1","fullName":"Ada"}`))
	require.Len(t, single, 1)
	assert.Equal(t, "s1", single[0].StudentID)
	assert.NotNil(t, single[0].Courses)

	many := Children(decode(t, `[{"userId":"s1"},"bad",{"userId":"s2"}]`))
	require.Len(t, many, 2)

	assert.Empty(t, Children(decode(t, `"nope"`)))
	assert.Empty(t, Children(nil))
}

func TestVerification(t *testing.T) {
	ver, ok := NormalizeVerification(decode(t, `{
		"totalLogs":10,"validLogs":9,"invalidLogs":1,
		"results":[{"id":"l1","isValid":false,"storedHash":"aa","expectedHash":"bb"},{"isValid":true}]
	}`))
	require.True(t, ok)
	assert.True(t, ver.Intrusion())
	assert.Equal(t, 10, ver.TotalLogs)
	require.Len(t, ver.Results, 2)
	assert.False(t, ver.Results[0].Valid)
	assert.Equal(t, "log-1", ver.Results[1].ID)
	assert.Equal(t, MissingHash, ver.Results[1].StoredHash)
	assert.Equal(t, UnknownHash, ver.Results[1].ExpectedHash)

	ver, _ = NormalizeVerification(decode(t, `{"invalidLogs":"lots"}`))
	assert.False(t, ver.Intrusion())
}

func TestText(t *testing.T) {
	assert.Equal(t, "x", Text(" x ", "d"))
	assert.Equal(t, "d", Text(nil, "d"))
	assert.Equal(t, "1.5", Text(1.5, "d"))
	assert.Equal(t, "true", Text(true, "d"))
	assert.Equal(t, Protected, Text(map[string]any{"a": 1}, "d"))
	assert.Equal(t, Protected, Text([]any{}, "d"))
}
