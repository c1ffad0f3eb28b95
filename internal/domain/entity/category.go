package entity

import (
	"fmt"
	"strings"
)

// Category is the closed set of content kinds that can trigger a notification.
type Category string

const (
	CategoryWorkflow Category = "workflow"
	CategoryPlugin   Category = "plugin"
	CategoryArticle  Category = "article"
	CategoryNews     Category = "news"
)

// Categories lists every valid category in display order.
func Categories() []Category {
	return []Category{CategoryWorkflow, CategoryPlugin, CategoryArticle, CategoryNews}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryWorkflow, CategoryPlugin, CategoryArticle, CategoryNews:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory converts a wire value into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if c == "" {
		return "", &ValidationError{Field: "category", Message: "category is required"}
	}
	if !c.Valid() {
		return "", &ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("unknown category %q (must be workflow, plugin, article or news)", s),
		}
	}
	return c, nil
}

// Action describes what happened to a piece of content.
type Action string

const (
	ActionPublished Action = "published"
	ActionUpdated   Action = "updated"
	ActionDeleted   Action = "deleted"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionPublished, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// ParseAction converts a wire value into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.TrimSpace(s))
	if a == "" {
		return "", &ValidationError{Field: "action", Message: "action is required"}
	}
	if !a.Valid() {
		return "", &ValidationError{
			Field:   "action",
			Message: fmt.Sprintf("unknown action %q (must be published, updated or deleted)", s),
		}
	}
	return a, nil
}
