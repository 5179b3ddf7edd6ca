package formatter

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
)

// AnalyticsToText renders the dashboard as aligned plain text.
func AnalyticsToText(a *models.Analytics) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Courses completed:  %d / %d\n", a.CourseCounts.Completed, a.CourseCounts.Total)
	fmt.Fprintf(&buf, "Sections completed: %d / %d\n", a.SectionCounts.Completed, a.SectionCounts.Total)
	avg := "-"
	if a.AverageCompletionTimeReadable != nil && *a.AverageCompletionTimeReadable != "" {
		avg = *a.AverageCompletionTimeReadable
	}
	fmt.Fprintf(&buf, "Average completion: %s\n", avg)

	if len(a.Courses) > 0 {
		buf.WriteString("\n")
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "COURSE\tPROGRESS\tLAST COMPLETED")
		for _, c := range a.Courses {
			last := shared.FormatTimestamp(c.LatestCompletedAt)
			if c.LatestCompletedAtReadable != nil && *c.LatestCompletedAtReadable != "" {
				last = *c.LatestCompletedAtReadable
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.Title, shared.FormatPercentage(c.CompletionPercentage), last)
		}
		w.Flush()
	}

	if len(a.DailySectionCompletions) > 0 {
		buf.WriteString("\nDaily completions\n")
		for _, d := range a.DailySectionCompletions {
			fmt.Fprintf(&buf, "  %s  %d\n", d.Date, d.Count)
		}
	}
	return buf.Bytes()
}

// CoursesToText renders a course list as an aligned table.
func CoursesToText(courses []models.Course) []byte {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tLEVEL\tPROGRESS\tCREATED")
	for _, c := range courses {
		created := shared.FormatTimestamp(&c.CreatedAt)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.CourseID, c.Title, c.Level, shared.FormatPercentage(c.CompletionPercentage), created)
	}
	w.Flush()
	return buf.Bytes()
}
