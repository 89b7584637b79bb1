// ABOUTME: Gin handlers implementing the record service contract over the in-memory store
// ABOUTME: Token failures answer with the same error strings the real service uses

package mockapi

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

// Error strings shared with clients that recognize expired sessions.
const (
	ExpiredTokenMessage = "jwt expired"
	InvalidTokenMessage = "Unauthorized - Invalid token"
	AccessDeniedMessage = "Access denied"
)

const claimsKey = "claims"

// Server is the development backend.
type Server struct {
	store  *Store
	issuer *Issuer
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithTokenTTL sets how long issued tokens stay valid.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.ttl = d }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.With("component", "mockapi")
		}
	}
}

// NewServer creates a server over store, signing tokens with secret.
func NewServer(store *Store, secret []byte, opts ...Option) *Server {
	s := &Server{
		store:  store,
		issuer: NewIssuer(secret),
		ttl:    time.Hour,
		logger: slog.Default().With("component", "mockapi"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Issuer returns the token issuer, for tests that need hand-made tokens.
func (s *Server) Issuer() *Issuer {
	return s.issuer
}

// Handler builds the gin engine. Every route lives under /api.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())

	api := r.Group("/api")
	api.POST("/auth/login", s.login)
	api.POST("/auth/qr", s.loginQR)
	api.POST("/auth/register", s.auth(RoleAdmin), s.register)

	api.GET("/logs", s.auth(RoleAdmin), s.listLogs)
	api.GET("/logs/verify", s.auth(RoleAdmin), s.verifyLogs)

	users := api.Group("/users")
	users.GET("", s.auth(RoleAdmin), s.listUsers)
	users.GET("/:id", s.auth(RoleAdmin), s.getUser)
	users.PUT("/:id", s.auth(RoleAdmin), s.updateUser)
	users.DELETE("/:id", s.auth(RoleAdmin), s.deleteUser)
	users.POST("/generate-qr/:id", s.auth(RoleAdmin), s.generateQR)
	users.GET("/qr/:id", s.auth(RoleAdmin), s.qrImage)
	users.GET("/id-card/:id", s.auth(RoleAdmin), s.idCard)

	users.GET("/courses/available", s.auth(RoleStudent), s.availableCourses)
	users.GET("/result/result", s.auth(RoleStudent), s.studentResult)
	users.PATCH("/register-courses", s.auth(RoleStudent), s.registerCourses)
	users.POST("/delete", s.auth(RoleStudent), s.requestDeletion)

	users.GET("/courses/teaching", s.auth(RoleTeacher), s.teachingCourses)
	users.GET("/courses/:code/students", s.auth(RoleTeacher), s.courseStudents)
	users.PATCH("/:id/grades", s.auth(RoleTeacher), s.updateGrade)

	users.GET("/parent/student", s.auth(RoleParent), s.childRecords)
	return r
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"request_id", c.GetHeader("X-Request-ID"),
			"duration", time.Since(start),
		)
	}
}

// auth verifies the bearer token and, when roles are given, the caller's role.
func (s *Server) auth(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": InvalidTokenMessage})
			return
		}
		claims, err := s.issuer.Verify(raw)
		switch {
		case errors.Is(err, ErrExpiredToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ExpiredTokenMessage})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": InvalidTokenMessage})
			return
		}
		if _, err := s.store.User(claims.Subject); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": InvalidTokenMessage})
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": AccessDeniedMessage})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func caller(c *gin.Context) Claims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(Claims)
	return claims
}

func (s *Server) issue(c *gin.Context, u User, action string) {
	token, err := s.issuer.Issue(u.ID, u.Role, s.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.store.Record(u.ID, u.Role, action)
	c.JSON(http.StatusOK, gin.H{"token": token, "role": u.Role, "userId": u.ID})
}

func (s *Server) login(c *gin.Context) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" || in.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}
	u, err := s.store.Authenticate(in.Email, in.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	s.issue(c, u, "login")
}

func (s *Server) loginQR(c *gin.Context) {
	var in struct {
		QR string `json:"qr"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.QR) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "QR code is required"})
		return
	}
	u, err := s.store.ByQRToken(strings.TrimSpace(in.QR))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid QR code"})
		return
	}
	s.issue(c, u, "qr_login")
}

type userBody struct {
	FullName        string   `json:"fullName"`
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	Role            string   `json:"role"`
	Class           string   `json:"class"`
	CoursesTeaching []string `json:"coursesTeaching"`
	LinkedStudentID string   `json:"linkedStudentId"`
}

func (s *Server) register(c *gin.Context) {
	var in userBody
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := s.store.CreateUser(User{
		FullName:        in.FullName,
		Email:           in.Email,
		Role:            in.Role,
		Class:           in.Class,
		CoursesTeaching: in.CoursesTeaching,
		LinkedStudentID: in.LinkedStudentID,
	}, in.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	me := caller(c)
	s.store.Record(me.Subject, me.Role, "register_user")
	c.JSON(http.StatusCreated, s.userJSON(u))
}

// fail maps store errors onto status codes.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownCode), errors.Is(err, ErrNotEnrolled):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// userJSON is the admin view of an account: the sealed email object plus
// the decrypted address.
func (s *Server) userJSON(u User) gin.H {
	out := gin.H{
		"_id":            u.ID,
		"fullName":       u.FullName,
		"email":          s.store.sealedEmail(u.Email),
		"decryptedEmail": u.Email,
		"role":           u.Role,
		"createdAt":      u.CreatedAt.UTC().Format(time.RFC3339),
	}
	switch u.Role {
	case RoleStudent:
		out["class"] = u.Class
	case RoleTeacher:
		out["coursesTeaching"] = u.CoursesTeaching
	case RoleParent:
		out["linkedStudentId"] = u.LinkedStudentID
	}
	if u.DeletionPending {
		out["deletionRequested"] = true
	}
	return out
}

func (s *Server) listUsers(c *gin.Context) {
	users := s.store.Users()
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, s.userJSON(u))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getUser(c *gin.Context) {
	u, err := s.store.User(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.userJSON(u))
}

func (s *Server) updateUser(c *gin.Context) {
	var in userBody
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := s.store.Update(c.Param("id"), User{
		FullName:        in.FullName,
		Email:           in.Email,
		Role:            in.Role,
		Class:           in.Class,
		CoursesTeaching: in.CoursesTeaching,
	}, in.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	me := caller(c)
	s.store.Record(me.Subject, me.Role, "update_user")
	c.JSON(http.StatusOK, s.userJSON(u))
}

func (s *Server) deleteUser(c *gin.Context) {
	if err := s.store.Delete(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	me := caller(c)
	s.store.Record(me.Subject, me.Role, "delete_user")
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

func (s *Server) generateQR(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.RotateQR(id); err != nil {
		s.fail(c, err)
		return
	}
	me := caller(c)
	s.store.Record(me.Subject, me.Role, "generate_qr")
	c.JSON(http.StatusOK, gin.H{"message": "QR code generated", "image": "/api/users/qr/" + id})
}

func (s *Server) qrPNG(id string, size int) ([]byte, error) {
	u, err := s.store.User(id)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(u.QRToken, qrcode.Medium, size)
}

func (s *Server) qrImage(c *gin.Context) {
	png, err := s.qrPNG(c.Param("id"), 256)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) idCard(c *gin.Context) {
	id := c.Param("id")
	u, err := s.store.User(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	png, err := s.qrPNG(id, 160)
	if err != nil {
		s.fail(c, err)
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="id-card"><h2>%s</h2><p>%s</p>`, html.EscapeString(u.FullName), html.EscapeString(u.Role))
	if u.Class != "" {
		fmt.Fprintf(&b, `<p>Class %s</p>`, html.EscapeString(u.Class))
	}
	fmt.Fprintf(&b, `<p>ID %s</p><img alt="login code" src="data:image/png;base64,%s"></div>`,
		html.EscapeString(u.ID), base64.StdEncoding.EncodeToString(png))
	c.JSON(http.StatusOK, gin.H{"html": b.String()})
}

func parseBound(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, v)
}

func (s *Server) listLogs(c *gin.Context) {
	q := LogQuery{
		UserID: c.Query("userId"),
		Role:   c.Query("role"),
		Action: c.Query("action"),
	}
	var err error
	if q.From, err = parseBound(c.Query("from")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date"})
		return
	}
	if q.To, err = parseBound(c.Query("to")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date"})
		return
	}
	if !q.To.IsZero() && len(c.Query("to")) == len(time.DateOnly) {
		q.To = q.To.Add(24*time.Hour - time.Nanosecond)
	}

	logs := s.store.Logs(q)
	out := make([]gin.H, 0, len(logs))
	for _, e := range logs {
		out = append(out, gin.H{
			"_id":       e.ID,
			"timestamp": e.Timestamp.UTC().Format(time.RFC3339),
			"userId":    e.UserID,
			"role":      e.Role,
			"action":    e.Action,
			"hash":      e.Hash,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) verifyLogs(c *gin.Context) {
	checks := s.store.Verify()
	results := make([]gin.H, 0, len(checks))
	valid := 0
	for _, ch := range checks {
		if ch.Valid {
			valid++
		}
		results = append(results, gin.H{
			"id":           ch.Entry.ID,
			"timestamp":    ch.Entry.Timestamp.UTC().Format(time.RFC3339),
			"userId":       ch.Entry.UserID,
			"action":       ch.Entry.Action,
			"isValid":      ch.Valid,
			"storedHash":   ch.Entry.Hash,
			"expectedHash": ch.Expected,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"totalLogs":   len(checks),
		"validLogs":   valid,
		"invalidLogs": len(checks) - valid,
		"results":     results,
	})
}

func (s *Server) availableCourses(c *gin.Context) {
	catalog := s.store.Catalog()
	out := make([]gin.H, 0, len(catalog))
	for _, course := range catalog {
		out = append(out, gin.H{"courseCode": course.Code, "courseName": course.Name})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) enrollmentsJSON(u User) []gin.H {
	out := make([]gin.H, 0, len(u.Enrollments))
	for _, e := range u.Enrollments {
		course := gin.H{"courseCode": e.Code, "courseName": s.store.CourseName(e.Code)}
		if e.Grade != "" {
			course["grade"] = e.Grade
		}
		out = append(out, course)
	}
	return out
}

func (s *Server) studentResult(c *gin.Context) {
	u, err := s.store.User(caller(c).Subject)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"studentId":   u.ID,
		"studentName": u.FullName,
		"class":       u.Class,
		"courses":     s.enrollmentsJSON(u),
	})
}

func (s *Server) registerCourses(c *gin.Context) {
	var in struct {
		Courses []string `json:"courses"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || len(in.Courses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No courses selected"})
		return
	}
	me := caller(c)
	if err := s.store.Enroll(me.Subject, in.Courses); err != nil {
		s.fail(c, err)
		return
	}
	s.store.Record(me.Subject, me.Role, "register_courses")
	c.JSON(http.StatusOK, gin.H{"message": "Courses registered"})
}

func (s *Server) requestDeletion(c *gin.Context) {
	me := caller(c)
	if err := s.store.RequestDeletion(me.Subject); err != nil {
		s.fail(c, err)
		return
	}
	s.store.Record(me.Subject, me.Role, "request_deletion")
	c.JSON(http.StatusOK, gin.H{"message": "Deletion request submitted"})
}

func (s *Server) teachingCourses(c *gin.Context) {
	u, err := s.store.User(caller(c).Subject)
	if err != nil {
		s.fail(c, err)
		return
	}
	// Plain codes, as the real service returns them.
	codes := u.CoursesTeaching
	if codes == nil {
		codes = []string{}
	}
	c.JSON(http.StatusOK, codes)
}

func (s *Server) teaches(c *gin.Context, code string) bool {
	u, err := s.store.User(caller(c).Subject)
	if err != nil || !slices.Contains(u.CoursesTeaching, code) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not teach this course"})
		return false
	}
	return true
}

func (s *Server) courseStudents(c *gin.Context) {
	code := c.Param("code")
	if !s.teaches(c, code) {
		return
	}
	students := s.store.Roster(code)
	out := make([]gin.H, 0, len(students))
	for _, u := range students {
		row := gin.H{"userId": u.ID, "fullName": u.FullName, "class": u.Class}
		for _, e := range u.Enrollments {
			if e.Code == code && e.Grade != "" {
				row["grade"] = e.Grade
			}
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) updateGrade(c *gin.Context) {
	var in struct {
		CourseCode string `json:"courseCode"`
		Grade      string `json:"grade"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.CourseCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "courseCode and grade are required"})
		return
	}
	if !slices.Contains([]string{"A", "B", "C", "D", "F"}, in.Grade) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid grade"})
		return
	}
	if !s.teaches(c, in.CourseCode) {
		return
	}
	if err := s.store.SetGrade(c.Param("id"), in.CourseCode, in.Grade); err != nil {
		s.fail(c, err)
		return
	}
	me := caller(c)
	s.store.Record(me.Subject, me.Role, "update_grade")
	c.JSON(http.StatusOK, gin.H{"message": "Grade updated"})
}

func (s *Server) childRecords(c *gin.Context) {
	children := s.store.Children(caller(c).Subject)
	if len(children) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No linked student found"})
		return
	}
	out := make([]gin.H, 0, len(children))
	for _, u := range children {
		out = append(out, gin.H{
			"userId":   u.ID,
			"fullName": u.FullName,
			"class":    u.Class,
			"courses":  s.enrollmentsJSON(u),
		})
	}
	// A single linked student comes back as a bare object.
	if len(out) == 1 {
		c.JSON(http.StatusOK, out[0])
		return
	}
	c.JSON(http.StatusOK, out)
}
