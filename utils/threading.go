package utils

import (
	"threadscope/models"
)

// ThreadBuilder links messages to their parents by header analysis and
// assembles the resulting forest. A builder can be reused; every call to
// BuildForest starts from a clean table.
type ThreadBuilder struct {
	idTable map[string]int
	nodes   []*models.ThreadNode
	logger  *Logger
}

// NewThreadBuilder creates a new thread builder
func NewThreadBuilder() *ThreadBuilder {
	return &ThreadBuilder{logger: Log}
}

// WithLogger sets the logger that receives recovery diagnostics
func (tb *ThreadBuilder) WithLogger(logger *Logger) *ThreadBuilder {
	if logger != nil {
		tb.logger = logger
	}
	return tb
}

// BuildForest reconstructs reply trees from messages in the order given.
// Malformed headers never fail the build: duplicates are dropped (first
// occurrence wins), unresolvable parents and links that would close a cycle
// turn the message into a root. Both are recorded in the forest diagnostics.
func (tb *ThreadBuilder) BuildForest(messages []*models.Message) *models.Forest {
	forest := &models.Forest{Trees: []*models.Tree{}}
	tb.idTable = make(map[string]int, len(messages))
	tb.nodes = make([]*models.ThreadNode, 0, len(messages))

	// Step 1: one node per unique message
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if !msg.HasID() {
			forest.Diagnostics.MissingIDs++
			tb.nodes = append(tb.nodes, &models.ThreadNode{Message: msg})
			continue
		}
		if _, exists := tb.idTable[msg.MessageID]; exists {
			forest.Diagnostics.Duplicates = append(forest.Diagnostics.Duplicates, msg.MessageID)
			tb.logger.WithField("message_id", msg.MessageID).Warn("Skipping duplicate message")
			continue
		}
		tb.idTable[msg.MessageID] = len(tb.nodes)
		tb.nodes = append(tb.nodes, &models.ThreadNode{Message: msg})
	}

	// Step 2: decide parents in input order. Every decided link joins two
	// components, so a candidate already in the child's component is one of
	// its descendants and linking it would close a cycle.
	parents := make([]int, len(tb.nodes))
	components := newComponents(len(tb.nodes))
	for i, node := range tb.nodes {
		parents[i] = -1

		parent, claimed := tb.resolveParent(node.Message)
		if parent < 0 {
			if claimed && node.Message.HasID() {
				forest.Diagnostics.Unresolved = append(forest.Diagnostics.Unresolved, node.Message.MessageID)
			}
			continue
		}

		if components.find(parent) == components.find(i) {
			forest.Diagnostics.CyclesBroken = append(forest.Diagnostics.CyclesBroken, node.Message.MessageID)
			tb.logger.WithFields(map[string]interface{}{
				"message_id": node.Message.MessageID,
				"parent_id":  tb.nodes[parent].Message.MessageID,
			}).Warn("Breaking reference cycle, message kept as root")
			continue
		}

		components.union(i, parent)
		parents[i] = parent
	}

	// Step 3: attach children and collect roots, both in input order
	for i, node := range tb.nodes {
		if parents[i] < 0 {
			forest.Trees = append(forest.Trees, &models.Tree{Root: node})
			continue
		}
		parent := tb.nodes[parents[i]]
		node.Parent = parent
		parent.Children = append(parent.Children, node)
	}

	tb.logger.Debug("Built %d threads from %d messages (%d duplicates, %d cycles broken, %d unresolved)",
		len(forest.Trees), len(tb.nodes), len(forest.Diagnostics.Duplicates),
		len(forest.Diagnostics.CyclesBroken), len(forest.Diagnostics.Unresolved))

	tb.idTable = nil
	tb.nodes = nil
	return forest
}

// resolveParent returns the node index of msg's parent, or -1. claimed is
// true when msg names any parent at all, resolvable or not.
func (tb *ThreadBuilder) resolveParent(msg *models.Message) (parent int, claimed bool) {
	if msg.InReplyTo != "" {
		claimed = true
		if idx, ok := tb.idTable[msg.InReplyTo]; ok {
			return idx, true
		}
	}

	// The closest known ancestor is the last resolvable reference
	for i := len(msg.References) - 1; i >= 0; i-- {
		claimed = true
		if idx, ok := tb.idTable[msg.References[i]]; ok {
			return idx, true
		}
	}

	return -1, claimed
}

// components is a union-find over node indexes
type components struct {
	parent []int
	size   []int
}

func newComponents(n int) *components {
	c := &components{parent: make([]int, n), size: make([]int, n)}
	for i := range c.parent {
		c.parent[i] = i
		c.size[i] = 1
	}
	return c
}

func (c *components) find(i int) int {
	for c.parent[i] != i {
		c.parent[i] = c.parent[c.parent[i]]
		i = c.parent[i]
	}
	return i
}

func (c *components) union(a, b int) {
	ra, rb := c.find(a), c.find(b)
	if ra == rb {
		return
	}
	if c.size[ra] < c.size[rb] {
		ra, rb = rb, ra
	}
	c.parent[rb] = ra
	c.size[ra] += c.size[rb]
}
