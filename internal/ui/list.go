package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/coursex/internal/models"
)

var _ list.Item = sectionItem{}

// sectionItem wraps [models.Section] to implement [list.Item].
type sectionItem struct {
	index      int
	section    models.Section
	completing bool
}

func (i sectionItem) FilterValue() string { return i.section.Title }
func (i sectionItem) Title() string {
	mark := "○"
	switch {
	case bool(i.section.IsCompleted):
		mark = "✓"
	case i.completing:
		mark = "…"
	}
	return fmt.Sprintf("%s %d. %s", mark, i.index+1, i.section.Title)
}
func (i sectionItem) Description() string { return i.section.Description }

func sectionItems(sections []models.Section, completing map[string]bool) []list.Item {
	items := make([]list.Item, len(sections))
	for i, s := range sections {
		items[i] = sectionItem{index: i, section: s, completing: completing[s.SectionID]}
	}
	return items
}
