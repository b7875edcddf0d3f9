package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// visitContext is the immutable record threaded through recursive tree
// walks. push returns a copy; no visitor state is shared across branches.
type visitContext struct {
	relPath  string
	scope    []string
	exported bool
}

// push returns a child context with name appended to the scope chain
func (c visitContext) push(name string) visitContext {
	scope := make([]string, 0, len(c.scope)+1)
	scope = append(scope, c.scope...)
	scope = append(scope, name)
	return visitContext{relPath: c.relPath, scope: scope, exported: c.exported}
}

// withExported returns a copy with the export-visibility flag set
func (c visitContext) withExported(exported bool) visitContext {
	return visitContext{relPath: c.relPath, scope: c.scope, exported: exported}
}

func startLine(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func endLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}

// fieldText returns the text of a named field child, or ""
func fieldText(n *sitter.Node, field string, content []byte) string {
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(content)
}

// childOfType returns the first direct child with the given kind, or nil
func childOfType(n *sitter.Node, kind string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child.Type() == kind {
			return child
		}
	}
	return nil
}

// hasChildOfType reports whether any direct child has the given kind
func hasChildOfType(n *sitter.Node, kind string) bool {
	return childOfType(n, kind) != nil
}

// precedingComment returns the comment immediately above the node, with
// adjacent comment lines merged. Used for docblocks and docstrings.
func precedingComment(n *sitter.Node, content []byte) string {
	sibling := n.PrevNamedSibling()
	if sibling == nil || sibling.Type() != "comment" {
		return ""
	}
	// Only attach a comment that actually touches the declaration
	if startLine(n)-endLine(sibling) > 1 {
		return ""
	}
	return sibling.Content(content)
}

// countBranches computes a McCabe-style complexity contribution for the
// subtree: one per branching construct, plus one per short-circuit
// operator. The caller adds the base score of 1. Nested function scopes
// in nestedScopes are skipped; their complexity belongs to them.
func countBranches(n *sitter.Node, content []byte, branchKinds, shortCircuitOps, nestedScopes map[string]bool) int {
	count := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		kind := child.Type()
		if nestedScopes[kind] {
			continue
		}
		if branchKinds[kind] {
			count++
		} else if shortCircuitOps != nil && (kind == "binary_expression" || kind == "boolean_operator") {
			if op := child.ChildByFieldName("operator"); op != nil && shortCircuitOps[op.Content(content)] {
				count++
			}
		}
		count += countBranches(child, content, branchKinds, shortCircuitOps, nestedScopes)
	}
	return count
}

// lastSegment returns the final member of a dotted/arrowed access chain
func lastSegment(expr string, separators ...string) string {
	result := expr
	for _, sep := range separators {
		if idx := strings.LastIndex(result, sep); idx >= 0 {
			result = result[idx+len(sep):]
		}
	}
	return result
}
