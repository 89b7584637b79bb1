// ABOUTME: Role-scoped course, grade, and family endpoints
// ABOUTME: Used by the teacher, student, and parent panels

package api

import (
	"context"
	"fmt"
	"net/http"
)

// AvailableCourses lists courses a student may register for.
func (c *Client) AvailableCourses(ctx context.Context) ([]any, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/users/courses/available", session: true})
	if err != nil {
		return nil, err
	}
	return decodeList(data)
}

// TeachingCourses lists the courses the current teacher teaches.
func (c *Client) TeachingCourses(ctx context.Context) ([]any, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/users/courses/teaching", session: true})
	if err != nil {
		return nil, err
	}
	return decodeList(data)
}

// StudentGrades returns the current student's result record.
func (c *Client) StudentGrades(ctx context.Context) (map[string]any, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/users/result/result", session: true})
	if err != nil {
		return nil, err
	}
	return decodeObject(data)
}

// CourseStudents lists the roster of a course.
func (c *Client) CourseStudents(ctx context.Context, code string) ([]any, error) {
	p, err := pathID(code)
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/users/courses/" + p + "/students", session: true})
	if err != nil {
		return nil, err
	}
	return decodeList(data)
}

// UpdateGrade sets one student's grade in one course.
func (c *Client) UpdateGrade(ctx context.Context, studentID, code, grade string) error {
	p, err := pathID(studentID)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/users/" + p + "/grades",
		body:    map[string]string{"courseCode": code, "grade": grade},
		session: true,
	})
	return err
}

// RegisterCourses registers the current student for the given course codes.
func (c *Client) RegisterCourses(ctx context.Context, codes []string) error {
	if codes == nil {
		codes = []string{}
	}
	_, err := c.do(ctx, request{
		method:  http.MethodPatch,
		path:    "/users/register-courses",
		body:    map[string][]string{"courses": codes},
		session: true,
	})
	return err
}

// RequestDeletion files an account deletion request for the current user.
func (c *Client) RequestDeletion(ctx context.Context) error {
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/users/delete", session: true})
	return err
}

// ChildRecords returns the parent's linked student data: one object or an
// array. Anything else, null included, is ErrShape.
func (c *Client) ChildRecords(ctx context.Context) (any, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: "/users/parent/student", session: true})
	if err != nil {
		return nil, err
	}
	v, err := decodeAny(data)
	if err != nil {
		return nil, err
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, nil
	}
	return nil, fmt.Errorf("%w: child records are %s", ErrShape, jsonKind(v))
}
