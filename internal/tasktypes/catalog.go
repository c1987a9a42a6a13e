// Package tasktypes holds the static catalog of recording tasks. The catalog
// is supplied at build time; sessions reference entries by ID.
package tasktypes

import (
	"github.com/gin-gonic/gin"

	"github.com/pairtalk/backend/internal/models"
	"github.com/pairtalk/backend/pkg/response"
)

// Catalog is an immutable set of task types.
type Catalog struct {
	byID  map[string]models.TaskType
	order []string
}

// NewCatalog builds a catalog from entries, preserving order.
func NewCatalog(entries []models.TaskType) *Catalog {
	c := &Catalog{byID: make(map[string]models.TaskType, len(entries))}
	for _, e := range entries {
		if _, dup := c.byID[e.ID]; dup {
			continue
		}
		c.byID[e.ID] = e
		c.order = append(c.order, e.ID)
	}
	return c
}

// Default returns the built-in task catalog.
func Default() *Catalog {
	return NewCatalog([]models.TaskType{
		{
			ID:              "conversation",
			Name:            "Free conversation",
			RequiresPartner: true,
			Instructions:    "Talk with your partner for at least ten minutes about a topic of your choice.",
		},
		{
			ID:              "interview",
			Name:            "Structured interview",
			RequiresPartner: true,
			Instructions:    "One partner asks the provided questions; the other answers in full sentences.",
		},
		{
			ID:              "monologue",
			Name:            "Solo monologue",
			RequiresPartner: false,
			Instructions:    "Describe the picture prompts aloud, one at a time, for about five minutes.",
		},
	})
}

// Get returns a task type by ID.
func (c *Catalog) Get(id string) (models.TaskType, bool) {
	tt, ok := c.byID[id]
	return tt, ok
}

// List returns all task types in catalog order.
func (c *Catalog) List() []models.TaskType {
	out := make([]models.TaskType, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// ListHandler handles GET /task-types.
func (c *Catalog) ListHandler(g *gin.Context) {
	response.OK(g, c.List())
}
