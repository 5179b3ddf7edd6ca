package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "http://localhost:8000"

// CourseService reads and mutates courses over the backend's REST endpoints.
type CourseService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewCourseService creates a client for baseURL. A nil client falls back to [http.DefaultClient]
// and a nil limiter disables rate limiting.
func NewCourseService(baseURL string, client *http.Client, limiter *rate.Limiter) *CourseService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}

	return &CourseService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		limiter:    limiter,
	}
}

// FetchCourse retrieves one course.
func (s *CourseService) FetchCourse(ctx context.Context, courseID string) (*models.Course, error) {
	if courseID == "" {
		return nil, &FetchError{Resource: "course", Err: shared.ErrMissingCourseID}
	}

	var course models.Course
	if err := s.do(ctx, http.MethodGet, "/course", url.Values{"id": {courseID}}, nil, &course); err != nil {
		return nil, fetchError("course", err)
	}
	if course.CourseID == "" {
		course.CourseID = courseID
	}
	return &course, nil
}

// FetchSections retrieves the sections of a course ordered by SectionOrder.
func (s *CourseService) FetchSections(ctx context.Context, courseID string) ([]models.Section, error) {
	if courseID == "" {
		return nil, &FetchError{Resource: "sections", Err: shared.ErrMissingCourseID}
	}

	var sections []models.Section
	if err := s.do(ctx, http.MethodGet, "/sections", url.Values{"course_id": {courseID}}, nil, &sections); err != nil {
		return nil, fetchError("sections", err)
	}
	return models.SortSections(sections), nil
}

// FetchCourseBundle retrieves a course and its sections. If either request fails the
// whole bundle fails and nothing partial is returned.
func (s *CourseService) FetchCourseBundle(ctx context.Context, courseID string) (*models.Bundle, error) {
	course, err := s.FetchCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	sections, err := s.FetchSections(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if sections == nil {
		sections = []models.Section{}
	}
	return &models.Bundle{Course: *course, Sections: sections}, nil
}

// MarkSectionComplete flags a section as completed.
func (s *CourseService) MarkSectionComplete(ctx context.Context, sectionID string) error {
	if sectionID == "" {
		return &MutationError{Operation: "mark section complete", Err: shared.ErrMissingArgument}
	}

	var result struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	payload := map[string]string{"section_id": sectionID}
	if err := s.do(ctx, http.MethodPost, "/section/complete", nil, payload, optional{&result}); err != nil {
		return mutationError("mark section complete", err)
	}
	if result.Status == "error" {
		return &MutationError{Operation: "mark section complete", Message: result.Message}
	}
	return nil
}

// DeleteCourse removes a course and its sections.
func (s *CourseService) DeleteCourse(ctx context.Context, courseID string) error {
	if courseID == "" {
		return &MutationError{Operation: "delete course", Err: shared.ErrMissingCourseID}
	}
	if err := s.do(ctx, http.MethodDelete, "/course", url.Values{"id": {courseID}}, nil, nil); err != nil {
		return mutationError("delete course", err)
	}
	return nil
}

// ListCourses retrieves every course.
func (s *CourseService) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := s.do(ctx, http.MethodGet, "/courses", nil, nil, &courses); err != nil {
		return nil, fetchError("courses", err)
	}
	return courses, nil
}

// FetchAnalytics retrieves the dashboard figures.
func (s *CourseService) FetchAnalytics(ctx context.Context) (*models.Analytics, error) {
	var analytics models.Analytics
	if err := s.do(ctx, http.MethodGet, "/analytics", nil, nil, &analytics); err != nil {
		return nil, fetchError("analytics", err)
	}
	return &analytics, nil
}

func (s *CourseService) do(ctx context.Context, method, endpoint string, query url.Values, payload, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if result == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if opt, ok := result.(optional); ok {
		if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		result = opt.v
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// optional marks a response body that may be absent on success.
type optional struct{ v any }

// errorMessage pulls a human-readable reason out of an error body.
func errorMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil {
		return ""
	}
	switch {
	case body.Message != "":
		return body.Message
	case body.Error != "":
		return body.Error
	default:
		return body.Detail
	}
}

func fetchError(resource string, err error) *FetchError {
	fe := &FetchError{Resource: resource, Err: err}
	var se *statusError
	if errors.As(err, &se) {
		fe.StatusCode = se.StatusCode
	}
	return fe
}

func mutationError(op string, err error) *MutationError {
	me := &MutationError{Operation: op, Err: err}
	var se *statusError
	if errors.As(err, &se) {
		me.StatusCode = se.StatusCode
		me.Message = se.Message
	}
	return me
}
