package resource

import "fmt"

// NodeAtPath resolves a node by walking nested resources segment by segment.
func NodeAtPath(r Resource, p Path) (Node, error) {
	if p.IsRoot() {
		return Node{}, fmt.Errorf("%w: root path addresses the resource itself", ErrNodeNotFound)
	}
	parent, err := ResourceAtPath(r, p.Parent())
	if err != nil {
		return Node{}, err
	}
	n, err := parent.NodeByID(p.Last())
	if err != nil {
		return Node{}, fmt.Errorf("%s: %w", p, err)
	}
	return n, nil
}

// ResourceAtPath resolves the resource nested at p. The root path resolves
// to r itself.
func ResourceAtPath(r Resource, p Path) (Resource, error) {
	cur := r
	for i, id := range p.segments {
		n, err := cur.NodeByID(id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", NewPath(p.segments[:i+1]...), err)
		}
		child, ok := n.Resource()
		if !ok {
			return nil, fmt.Errorf("%s: %w", NewPath(p.segments[:i+1]...), ErrNotAResource)
		}
		cur = child
	}
	return cur, nil
}

// InsertNodeAtPath inserts node under id into the resource at parent and
// refreshes every ancestor resource node so their tag names and
// last-written timestamps reflect the change.
func InsertNodeAtPath(r Resource, parent Path, id string, node Node, embedding Embedding) error {
	target, err := ResourceAtPath(r, parent)
	if err != nil {
		return err
	}
	if err := target.InsertNode(id, node, embedding); err != nil {
		return err
	}
	return refreshAncestors(r, parent)
}

// RemoveNodeAtPath removes the node at p and refreshes its ancestors.
func RemoveNodeAtPath(r Resource, p Path) (Node, error) {
	if p.IsRoot() {
		return Node{}, fmt.Errorf("%w: cannot remove the root", ErrInvalidNodeID)
	}
	parent, err := ResourceAtPath(r, p.Parent())
	if err != nil {
		return Node{}, err
	}
	n, _, err := parent.RemoveNode(p.Last())
	if err != nil {
		return Node{}, err
	}
	return n, refreshAncestors(r, p.Parent())
}

// refreshAncestors re-puts each resource node along p, deepest first.
func refreshAncestors(r Resource, p Path) error {
	ts := now()
	for cur := p; !cur.IsRoot(); cur = cur.Parent() {
		holder, err := ResourceAtPath(r, cur.Parent())
		if err != nil {
			return err
		}
		n, err := holder.NodeByID(cur.Last())
		if err != nil {
			return err
		}
		emb, err := holder.EmbeddingByID(cur.Last())
		if err != nil {
			return err
		}
		child, _ := n.Resource()
		child.SetLastWritten(ts)
		n.DataTagNames = child.DataTagIndex().Names()
		n.LastWritten = ts
		if err := holder.InsertNode(n.ID, n, emb); err != nil {
			return err
		}
	}
	r.SetLastWritten(ts)
	return nil
}
