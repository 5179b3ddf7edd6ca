package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Level is the difficulty a course is generated for.
type Level string

const (
	Beginner     Level = "Beginner"
	Intermediate Level = "Intermediate"
	Advanced     Level = "Advanced"
)

// Levels lists the accepted levels in display order.
var Levels = []Level{Beginner, Intermediate, Advanced}

// ParseLevel resolves a level name case-insensitively. An empty name defaults to [Beginner].
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Beginner, nil
	}
	for _, l := range Levels {
		if strings.EqualFold(s, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown level %q (want one of Beginner, Intermediate, Advanced)", s)
}

func (l Level) String() string { return string(l) }

// Flag is a boolean the backend encodes as 0/1. true/false are accepted too.
type Flag bool

// UnmarshalJSON implements [json.Unmarshaler].
func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "1", "true":
		*f = true
	case "0", "false", "null":
		*f = false
	default:
		return fmt.Errorf("invalid flag value %s", data)
	}
	return nil
}

// MarshalJSON implements [json.Marshaler], writing the 0/1 wire form.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// Course is the read-only projection of a generated course.
//
// CompletionPercentage is a fraction in [0, 1]. A nil value means the backend did not report it.
type Course struct {
	CourseID             string   `json:"course_id"`
	SessionID            string   `json:"session_id,omitempty"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Level                string   `json:"level"`
	CreatedAt            int64    `json:"created_at"`
	CompletionPercentage *float64 `json:"completion_percentage"`
}

// Created returns CreatedAt as a [time.Time].
func (c Course) Created() time.Time {
	return time.Unix(c.CreatedAt, 0)
}

// Clone returns a deep copy of the course.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	out := *c
	if c.CompletionPercentage != nil {
		p := *c.CompletionPercentage
		out.CompletionPercentage = &p
	}
	return &out
}

// Section is one ordered unit of a course.
type Section struct {
	SectionID    string `json:"section_id"`
	CourseID     string `json:"course_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Content      string `json:"content"`
	SectionOrder int    `json:"section_order"`
	CreatedAt    int64  `json:"created_at"`
	IsCompleted  Flag   `json:"is_completed"`
	CompletedAt  *int64 `json:"completed_at"`
}

// SortSections orders sections by SectionOrder. The sort is stable and works on a copy.
func SortSections(sections []Section) []Section {
	out := CloneSections(sections)
	slices.SortStableFunc(out, func(a, b Section) int {
		return a.SectionOrder - b.SectionOrder
	})
	return out
}

// CloneSections returns a deep copy of sections.
func CloneSections(sections []Section) []Section {
	if sections == nil {
		return nil
	}
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = s
		if s.CompletedAt != nil {
			at := *s.CompletedAt
			out[i].CompletedAt = &at
		}
	}
	return out
}

// Bundle pairs a course with its sections. Either both are present or neither.
type Bundle struct {
	Course   Course
	Sections []Section
}

// CompletedCount returns how many sections are flagged complete.
func (b Bundle) CompletedCount() int {
	n := 0
	for _, s := range b.Sections {
		if s.IsCompleted {
			n++
		}
	}
	return n
}

// FilterCourses returns the courses whose title contains query (case-insensitive)
// and, when level is non-empty, whose level matches it.
func FilterCourses(courses []Course, query, level string) []Course {
	query = strings.ToLower(strings.TrimSpace(query))
	var out []Course
	for _, c := range courses {
		if query != "" && !strings.Contains(strings.ToLower(c.Title), query) {
			continue
		}
		if level != "" && !strings.EqualFold(c.Level, level) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Analytics mirrors the dashboard payload.
type Analytics struct {
	AverageCompletionTimeReadable *string           `json:"average_course_completion_time_readable"`
	AverageCompletionTimeSeconds  *float64          `json:"average_course_completion_time_seconds"`
	CourseCounts                  Counts            `json:"course_counts"`
	SectionCounts                 Counts            `json:"section_counts"`
	Courses                       []CourseAnalytic  `json:"courses_table"`
	DailySectionCompletions       []DailyCompletion `json:"daily_section_completions"`
}

// Counts is a completed/total pair.
type Counts struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// CourseAnalytic is one row of the dashboard course table.
type CourseAnalytic struct {
	CourseID                  string   `json:"course_id"`
	Title                     string   `json:"title"`
	CompletionPercentage      *float64 `json:"completion_percentage"`
	LatestCompletedAt         *int64   `json:"latest_completed_at"`
	LatestCompletedAtReadable *string  `json:"latest_completed_at_readable"`
}

// DailyCompletion counts completed sections on one day.
type DailyCompletion struct {
	Date  string `json:"completion_date"`
	Count int    `json:"completed_sections_count"`
}

var _ json.Unmarshaler = (*Flag)(nil)
