package items

import (
	"testing"

	"github.com/google/uuid"
)

func item(id uuid.UUID, name string, parentID *uuid.UUID) ItemDTO {
	return ItemDTO{ID: id, ProductName: name, ParentID: parentID}
}

func TestBuildForestLinksChildren(t *testing.T) {
	kitID := uuid.New()
	childID := uuid.New()
	grandchildID := uuid.New()
	looseID := uuid.New()

	forest := BuildForest([]ItemDTO{
		item(kitID, "aid bag", nil),
		item(childID, "bandage kit", &kitID),
		item(grandchildID, "gauze", &childID),
		item(looseID, "compass", nil),
	})

	if len(forest) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(forest))
	}
	if forest[0].Item.ProductName != "aid bag" || forest[1].Item.ProductName != "compass" {
		t.Fatalf("root order not preserved: %s, %s", forest[0].Item.ProductName, forest[1].Item.ProductName)
	}
	if len(forest[0].Children) != 1 || forest[0].Children[0].Item.ID != childID {
		t.Fatalf("kit child not linked")
	}
	if len(forest[0].Children[0].Children) != 1 || forest[0].Children[0].Children[0].Item.ID != grandchildID {
		t.Fatalf("grandchild not linked")
	}
}

func TestBuildForestOrphanBecomesRoot(t *testing.T) {
	missingParent := uuid.New()
	orphanID := uuid.New()

	forest := BuildForest([]ItemDTO{item(orphanID, "orphan", &missingParent)})
	if len(forest) != 1 || forest[0].Item.ID != orphanID {
		t.Fatalf("orphan should surface as a root")
	}
}

func TestFlattenPreOrder(t *testing.T) {
	kitID := uuid.New()
	childID := uuid.New()
	grandchildID := uuid.New()
	secondRootID := uuid.New()

	forest := BuildForest([]ItemDTO{
		item(kitID, "kit", nil),
		item(secondRootID, "loose", nil),
		item(childID, "child", &kitID),
		item(grandchildID, "grandchild", &childID),
	})

	flat := Flatten(forest)
	got := make([]uuid.UUID, 0, len(flat))
	for _, dto := range flat {
		got = append(got, dto.ID)
	}
	want := []uuid.UUID{kitID, childID, grandchildID, secondRootID}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: parents must precede descendants, got %v want %v", i, got, want)
		}
	}
}

func TestFlattenNilIsEmpty(t *testing.T) {
	flat := Flatten(nil)
	if flat == nil || len(flat) != 0 {
		t.Fatalf("Flatten(nil) must be an empty slice, got %#v", flat)
	}
}

func TestFlattenIsPure(t *testing.T) {
	kitID := uuid.New()
	childID := uuid.New()
	forest := BuildForest([]ItemDTO{
		item(kitID, "kit", nil),
		item(childID, "child", &kitID),
	})

	first := Flatten(forest)
	second := Flatten(forest)
	if len(first) != len(second) {
		t.Fatalf("repeated flatten changed length")
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("repeated flatten changed order at %d", i)
		}
	}
}
