package configtree

import "github.com/goccy/go-json"

type nodeKind int

const (
	kindContainer nodeKind = iota
	kindLeaf
)

// nodeID is an arena index. noParent marks the root's parent slot.
type nodeID int32

const noParent nodeID = -1

type node struct {
	kind    nodeKind
	name    string
	parent  nodeID
	modtime int64

	// container fields
	childOrder []string
	children   map[string]nodeID

	// leaf fields
	value     json.RawMessage
	validator Validator

	subs []*subscription
}

func newContainerNode(name string, parent nodeID) *node {
	return &node{
		kind:     kindContainer,
		name:     name,
		parent:   parent,
		children: make(map[string]nodeID),
	}
}

func newLeafNode(name string, parent nodeID, ts int64, value json.RawMessage) *node {
	return &node{
		kind:    kindLeaf,
		name:    name,
		parent:  parent,
		modtime: ts,
		value:   value,
	}
}

func (n *node) isContainer() bool { return n.kind == kindContainer }
func (n *node) isLeaf() bool      { return n.kind == kindLeaf }

// childID looks up a direct child by name; ok is false if no such child or
// the node is not a container.
func (n *node) childID(name string) (nodeID, bool) {
	if n.children == nil {
		return 0, false
	}
	id, ok := n.children[name]
	return id, ok
}
