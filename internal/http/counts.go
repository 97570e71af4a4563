package http

import "github.com/fyrsmithlabs/vecfs/internal/vecfs"

// countTree totals the folders and items below root.
func countTree(root *vecfs.Root) (folders, items int) {
	if root == nil {
		return 0, 0
	}
	stack := append([]*vecfs.Folder(nil), root.Folders...)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		folders++
		items += len(f.Items)
		stack = append(stack, f.Folders...)
	}
	return folders, items
}
