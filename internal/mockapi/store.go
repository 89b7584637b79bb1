// ABOUTME: In-memory records for the development backend: users, courses, and a hash-chained audit log
// ABOUTME: Emails are sealed at rest and passwords are bcrypt hashed, like the real service

package mockapi

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/chacha20poly1305"
)

// Roles understood by the backend.
const (
	RoleAdmin   = "Admin"
	RoleTeacher = "Teacher"
	RoleStudent = "Student"
	RoleParent  = "Parent"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrBadLogin     = errors.New("invalid credentials")
	ErrUnknownCode  = errors.New("unknown course")
	ErrNotEnrolled  = errors.New("student not enrolled in course")
	ErrInvalidInput = errors.New("invalid input")
)

// Course is a catalog entry.
type Course struct {
	Code string
	Name string
}

// Enrollment is a student's place in a course.
type Enrollment struct {
	Code  string
	Grade string // empty until graded
}

// User is a stored account.
type User struct {
	ID              string
	FullName        string
	Email           string
	PasswordHash    []byte
	Role            string
	Class           string
	CoursesTeaching []string
	LinkedStudentID string
	QRToken         string
	Enrollments     []Enrollment
	DeletionPending bool
	CreatedAt       time.Time
}

// LogEntry is one audit record. Hash chains over the previous entry's hash.
type LogEntry struct {
	ID        string
	Timestamp time.Time
	UserID    string
	Role      string
	Action    string
	PrevHash  string
	Hash      string
}

// Store holds every record behind one lock.
type Store struct {
	mu      sync.Mutex
	users   map[string]*User
	order   []string
	catalog []Course
	logs    []LogEntry
	aead    cipherAEAD
	now     func() time.Time
}

type cipherAEAD interface {
	NonceSize() int
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
}

// NewStore creates an empty store with a fresh email sealing key.
func NewStore() *Store {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("generating email key: %v", err))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		panic(fmt.Sprintf("creating email cipher: %v", err))
	}
	return &Store{
		users: make(map[string]*User),
		aead:  aead,
		now:   time.Now,
	}
}

// sealedEmail is the at-rest representation returned alongside the
// decrypted address, the way the real service exposes it.
func (s *Store) sealedEmail(email string) map[string]any {
	nonce := make([]byte, s.aead.NonceSize())
	_, _ = rand.Read(nonce)
	ct := s.aead.Seal(nil, nonce, []byte(email), nil)
	return map[string]any{"iv": hex.EncodeToString(nonce), "content": hex.EncodeToString(ct)}
}

// AddCourse adds or renames a catalog course.
func (s *Store) AddCourse(code, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.catalog {
		if s.catalog[i].Code == code {
			s.catalog[i].Name = name
			return
		}
	}
	s.catalog = append(s.catalog, Course{Code: code, Name: name})
}

// CreateUser stores a new account and returns a copy of it.
func (s *Store) CreateUser(u User, password string) (User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if strings.TrimSpace(u.FullName) == "" || u.Email == "" || password == "" {
		return User{}, fmt.Errorf("%w: full name, email, and password are required", ErrInvalidInput)
	}
	switch u.Role {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
	default:
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, u.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if other.Email == u.Email {
			return User{}, ErrEmailTaken
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.PasswordHash = hash
	u.QRToken = uuid.NewString()
	u.CreatedAt = s.now()
	stored := u
	s.users[u.ID] = &stored
	s.order = append(s.order, u.ID)
	return clone(stored), nil
}

func clone(u User) User {
	u.CoursesTeaching = slices.Clone(u.CoursesTeaching)
	u.Enrollments = slices.Clone(u.Enrollments)
	return u
}

// Authenticate checks email and password.
func (s *Store) Authenticate(email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	var found *User
	for _, u := range s.users {
		if u.Email == email {
			found = u
			break
		}
	}
	var u User
	if found != nil {
		u = clone(*found)
	}
	s.mu.Unlock()

	if found == nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return User{}, ErrBadLogin
	}
	return u, nil
}

// ByQRToken finds the user owning a proof token.
func (s *Store) ByQRToken(token string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if token != "" && u.QRToken == token {
			return clone(*u), nil
		}
	}
	return User{}, ErrNotFound
}

// User returns the account with id.
func (s *Store) User(id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return clone(*u), nil
}

// Users returns every account in creation order.
func (s *Store) Users() []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clone(*s.users[id]))
	}
	return out
}

// Update applies the profile edit fields of patch to id. An empty password
// leaves the stored hash alone.
func (s *Store) Update(id string, patch User, password string) (User, error) {
	var hash []byte
	if password != "" {
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost); err != nil {
			return User{}, fmt.Errorf("hashing password: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if patch.FullName != "" {
		u.FullName = patch.FullName
	}
	if email := strings.ToLower(strings.TrimSpace(patch.Email)); email != "" {
		u.Email = email
	}
	if patch.Role != "" {
		u.Role = patch.Role
	}
	if patch.Class != "" {
		u.Class = patch.Class
	}
	if patch.CoursesTeaching != nil {
		u.CoursesTeaching = slices.Clone(patch.CoursesTeaching)
	}
	if hash != nil {
		u.PasswordHash = hash
	}
	return clone(*u), nil
}

// Delete removes id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// RotateQR issues a new proof token for id.
func (s *Store) RotateQR(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return "", ErrNotFound
	}
	u.QRToken = uuid.NewString()
	return u.QRToken, nil
}

// Catalog returns every course.
func (s *Store) Catalog() []Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.catalog)
}

// CourseName returns the catalog name for code, or code itself.
func (s *Store) CourseName(code string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.courseName(code)
}

func (s *Store) courseName(code string) string {
	for _, c := range s.catalog {
		if c.Code == code {
			return c.Name
		}
	}
	return code
}

// Enroll registers student id for codes. Already held courses are skipped.
func (s *Store) Enroll(id string, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	for _, code := range codes {
		if !slices.ContainsFunc(s.catalog, func(c Course) bool { return c.Code == code }) {
			return fmt.Errorf("%w: %s", ErrUnknownCode, code)
		}
	}
	for _, code := range codes {
		if !slices.ContainsFunc(u.Enrollments, func(e Enrollment) bool { return e.Code == code }) {
			u.Enrollments = append(u.Enrollments, Enrollment{Code: code})
		}
	}
	return nil
}

// Roster returns the students enrolled in code.
func (s *Store) Roster(code string) []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []User
	for _, id := range s.order {
		u := s.users[id]
		if u.Role == RoleStudent && slices.ContainsFunc(u.Enrollments, func(e Enrollment) bool { return e.Code == code }) {
			out = append(out, clone(*u))
		}
	}
	return out
}

// SetGrade grades student id in code.
func (s *Store) SetGrade(id, code, grade string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	for i := range u.Enrollments {
		if u.Enrollments[i].Code == code {
			u.Enrollments[i].Grade = grade
			return nil
		}
	}
	return ErrNotEnrolled
}

// RequestDeletion flags id for deletion review.
func (s *Store) RequestDeletion(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.DeletionPending = true
	return nil
}

// Children returns the students linked to parent id.
func (s *Store) Children(parentID string) []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.users[parentID]
	if !ok {
		return nil
	}
	var out []User
	for _, id := range s.order {
		u := s.users[id]
		if u.Role == RoleStudent && slices.Contains(strings.Split(p.LinkedStudentID, ","), u.ID) {
			out = append(out, clone(*u))
		}
	}
	return out
}

func chainHash(prev string, e LogEntry) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		prev, e.ID, e.Timestamp.UTC().Format(time.RFC3339Nano), e.UserID, e.Role, e.Action,
	}, "|")))
	return hex.EncodeToString(sum[:])
}

// Record appends an audit entry.
func (s *Store) Record(userID, role, action string) LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := ""
	if n := len(s.logs); n > 0 {
		prev = s.logs[n-1].Hash
	}
	e := LogEntry{
		ID:        uuid.NewString(),
		Timestamp: s.now(),
		UserID:    userID,
		Role:      role,
		Action:    action,
		PrevHash:  prev,
	}
	e.Hash = chainHash(prev, e)
	s.logs = append(s.logs, e)
	return e
}

// LogQuery filters audit entries. Blank fields match everything.
type LogQuery struct {
	UserID string
	Role   string
	Action string
	From   time.Time
	To     time.Time
}

// Logs returns entries matching q, newest first.
func (s *Store) Logs(q LogQuery) []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []LogEntry{}
	for i := len(s.logs) - 1; i >= 0; i-- {
		e := s.logs[i]
		switch {
		case q.UserID != "" && e.UserID != q.UserID:
		case q.Role != "" && !strings.EqualFold(e.Role, q.Role):
		case q.Action != "" && !strings.Contains(strings.ToLower(e.Action), strings.ToLower(q.Action)):
		case !q.From.IsZero() && e.Timestamp.Before(q.From):
		case !q.To.IsZero() && e.Timestamp.After(q.To):
		default:
			out = append(out, e)
		}
	}
	return out
}

// Check is one entry of an integrity verification.
type Check struct {
	Entry    LogEntry
	Expected string
	Valid    bool
}

// Verify recomputes the hash chain.
func (s *Store) Verify() []Check {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Check, 0, len(s.logs))
	prev := ""
	for _, e := range s.logs {
		expected := chainHash(prev, e)
		out = append(out, Check{Entry: e, Expected: expected, Valid: expected == e.Hash && e.PrevHash == prev})
		prev = e.Hash
	}
	return out
}

// TamperLog rewrites the action of the i-th entry without rehashing, so
// verification reports it. It returns false when i is out of range.
func (s *Store) TamperLog(i int, action string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.logs) {
		return false
	}
	s.logs[i].Action = action
	return true
}
