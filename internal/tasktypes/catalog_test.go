package tasktypes

import (
	"testing"

	"github.com/pairtalk/backend/internal/models"
)

func TestCatalogOrderAndLookup(t *testing.T) {
	t.Parallel()
	c := NewCatalog([]models.TaskType{
		{ID: "b", Name: "B"},
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B duplicate"},
	})

	list := c.List()
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2 (duplicate dropped)", len(list))
	}
	if list[0].ID != "b" || list[1].ID != "a" {
		t.Fatalf("order not preserved: %v", list)
	}
	if got, ok := c.Get("b"); !ok || got.Name != "B" {
		t.Fatalf("Get(b) = (%+v, %v), first entry must win", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get(missing) reported ok")
	}
}

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()
	c := Default()
	conv, ok := c.Get("conversation")
	if !ok || !conv.RequiresPartner {
		t.Fatalf("conversation = (%+v, %v), want a paired task", conv, ok)
	}
	mono, ok := c.Get("monologue")
	if !ok || mono.RequiresPartner {
		t.Fatalf("monologue = (%+v, %v), want a solo task", mono, ok)
	}
}
