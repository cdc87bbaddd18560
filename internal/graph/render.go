package graph

import (
	"encoding/json"
	"fmt"

	"github.com/xlab/treeprint"
)

// Render draws the subtree rooted at id as an indented tree. Composite nodes
// carry their kind as metadata; leaves show key and value.
func Render(g Graph, id string) (string, error) {
	n, err := g.GetNode(id)
	if err != nil {
		return "", fmt.Errorf("render %q: %w", id, err)
	}
	label := n.Key
	if id == RootID {
		label = "."
	}
	tree := treeprint.NewWithRoot(fmt.Sprintf("%s (%s)", label, n.Kind))
	if err := addChildren(g, tree, n); err != nil {
		return "", err
	}
	return tree.String(), nil
}

func addChildren(g Graph, tree treeprint.Tree, n *Node) error {
	for _, childID := range n.Children {
		child, err := g.GetNode(childID)
		if err != nil {
			return fmt.Errorf("render %q: %w", childID, err)
		}
		if child.IsLeaf() && child.Kind == "value" {
			tree.AddNode(fmt.Sprintf("%s = %s", child.Key, leafText(child.Value)))
			continue
		}
		branch := tree.AddMetaBranch(child.Kind, child.Key)
		if err := addChildren(g, branch, child); err != nil {
			return err
		}
	}
	return nil
}

func leafText(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
