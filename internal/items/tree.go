package items

import "github.com/google/uuid"

// Node is one item plus its resolved children.
type Node struct {
	Item     ItemDTO `json:"item"`
	Children []*Node `json:"children"`
}

// BuildForest links a flat item slice into root nodes. Input order is
// preserved at every level; an item whose parent is not present in the
// slice is treated as a root.
func BuildForest(items []ItemDTO) []*Node {
	nodes := make(map[uuid.UUID]*Node, len(items))
	for i := range items {
		nodes[items[i].ID] = &Node{Item: items[i]}
	}

	roots := make([]*Node, 0, len(items))
	for i := range items {
		node := nodes[items[i].ID]
		if items[i].ParentID != nil {
			if parent, ok := nodes[*items[i].ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// Flatten walks the forest in pre-order so every parent precedes its
// descendants. A nil forest flattens to an empty slice.
func Flatten(nodes []*Node) []ItemDTO {
	out := make([]ItemDTO, 0, len(nodes))
	for _, node := range nodes {
		if node == nil {
			continue
		}
		out = append(out, node.Item)
		out = append(out, Flatten(node.Children)...)
	}
	return out
}
