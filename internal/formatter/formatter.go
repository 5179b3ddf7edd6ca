// package formatter renders course bundles and dashboard data as CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
)

// Formats lists the accepted export formats.
var Formats = []string{"markdown", "csv", "txt", "json"}

// ValidFormat reports whether format is one of [Formats].
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

func completedString(c models.Flag) string {
	if c {
		return "yes"
	}
	return "no"
}

// ExportToCSV converts a course bundle to CSV with columns: Order, SectionID, Title, Description, Completed, CompletedAt
func ExportToCSV(b *models.Bundle) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Order", "SectionID", "Title", "Description", "Completed", "CompletedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range models.SortSections(b.Sections) {
		completedAt := ""
		if s.CompletedAt != nil {
			completedAt = time.Unix(*s.CompletedAt, 0).UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.Itoa(s.SectionOrder),
			s.SectionID,
			s.Title,
			s.Description,
			completedString(s.IsCompleted),
			completedAt,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown converts a course bundle to a single Markdown document, one heading per section.
func ExportToMarkdown(b *models.Bundle) ([]byte, error) {
	var buf bytes.Buffer
	c := b.Course

	fmt.Fprintf(&buf, "# %s\n\n", c.Title)
	if c.Description != "" {
		fmt.Fprintf(&buf, "%s\n\n", c.Description)
	}
	if c.Level != "" {
		fmt.Fprintf(&buf, "**Level**: %s\n", c.Level)
	}
	fmt.Fprintf(&buf, "**Sections**: %d (%d completed)\n", len(b.Sections), b.CompletedCount())
	fmt.Fprintf(&buf, "**Progress**: %s\n\n", shared.FormatPercentage(c.CompletionPercentage))

	sections := models.SortSections(b.Sections)
	if len(sections) > 0 {
		buf.WriteString("## Contents\n\n")
		for i, s := range sections {
			mark := " "
			if s.IsCompleted {
				mark = "x"
			}
			fmt.Fprintf(&buf, "- [%s] %d. %s\n", mark, i+1, s.Title)
		}
		buf.WriteString("\n")
	}

	for i, s := range sections {
		fmt.Fprintf(&buf, "## %d. %s\n\n", i+1, s.Title)
		if s.Description != "" {
			fmt.Fprintf(&buf, "_%s_\n\n", s.Description)
		}
		if content := strings.TrimSpace(s.Content); content != "" {
			buf.WriteString(content)
			buf.WriteString("\n\n")
		}
	}
	return buf.Bytes(), nil
}

// ExportToText converts a course bundle to plain text, listing sections without their content.
func ExportToText(b *models.Bundle) ([]byte, error) {
	var buf bytes.Buffer
	c := b.Course

	fmt.Fprintf(&buf, "Course: %s\n", c.Title)
	if c.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", c.Description)
	}
	if c.Level != "" {
		fmt.Fprintf(&buf, "Level: %s\n", c.Level)
	}
	fmt.Fprintf(&buf, "Progress: %s\n", shared.FormatPercentage(c.CompletionPercentage))
	fmt.Fprintf(&buf, "Sections: %d\n\n", len(b.Sections))

	for i, s := range models.SortSections(b.Sections) {
		mark := " "
		if s.IsCompleted {
			mark = "✓"
		}
		fmt.Fprintf(&buf, "%s %d. %s\n", mark, i+1, s.Title)
	}
	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of course metadata (without sections)
func ToMetadataJSON(course models.Course) ([]byte, error) {
	return shared.MarshalJSON(course, true)
}

// ToJSON generates a JSON representation of the whole bundle.
func ToJSON(b *models.Bundle) ([]byte, error) {
	return shared.MarshalJSON(struct {
		Course   models.Course    `json:"course"`
		Sections []models.Section `json:"sections"`
	}{b.Course, models.SortSections(b.Sections)}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	SectionsFile string
	MetadataFile string
}

// WriteCSVExport exports a course to CSV with an accompanying metadata JSON file.
//
// Defaults to the course ID as the base filename & creates {base}_sections.csv and {base}_metadata.json
func WriteCSVExport(b *models.Bundle, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = b.Course.CourseID
	}

	csvData, err := ExportToCSV(b)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	sectionsFile := baseFilepath + "_sections.csv"
	if err := os.WriteFile(sectionsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(b.Course)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{SectionsFile: sectionsFile, MetadataFile: metadataFile}, nil
}

// WriteMarkdownExport writes a course to {dir}/README.md. The directory defaults to the course ID.
func WriteMarkdownExport(b *models.Bundle, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = b.Course.CourseID
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return mdFile, nil
}

// WriteTextExport exports a course to plain text. Defaults to {course.ID}.txt as the filename.
func WriteTextExport(b *models.Bundle, path string) (string, error) {
	if path == "" {
		path = b.Course.CourseID + ".txt"
	}

	textData, err := ExportToText(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// WriteJSONExport exports a course and its sections as JSON. Defaults to {course.ID}.json.
func WriteJSONExport(b *models.Bundle, path string) (string, error) {
	if path == "" {
		path = b.Course.CourseID + ".json"
	}

	data, err := ToJSON(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}
	return path, nil
}

// WriteExport writes b in format under dir and returns the files created.
func WriteExport(b *models.Bundle, format, dir string) ([]string, error) {
	base := filepath.Join(dir, b.Course.CourseID)

	switch format {
	case "csv":
		res, err := WriteCSVExport(b, base)
		if err != nil {
			return nil, err
		}
		return []string{res.SectionsFile, res.MetadataFile}, nil
	case "markdown", "md":
		file, err := WriteMarkdownExport(b, base)
		if err != nil {
			return nil, err
		}
		return []string{file}, nil
	case "txt", "text":
		file, err := WriteTextExport(b, base+".txt")
		if err != nil {
			return nil, err
		}
		return []string{file}, nil
	case "json":
		file, err := WriteJSONExport(b, base+".json")
		if err != nil {
			return nil, err
		}
		return []string{file}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidInput, format)
	}
}
