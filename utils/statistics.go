package utils

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-message/mail"

	"threadscope/models"
)

// subtree holds the bottom-up counters of one node
type subtree struct {
	total    int
	maxDepth int
	branches int
}

// Aggregate computes the statistics of the tree below root with a single
// post-order traversal. It uses an explicit stack, so thread depth is not
// bounded by the call stack.
func Aggregate(root *models.ThreadNode) models.ThreadStatistics {
	if root == nil {
		return models.ThreadStatistics{Participants: []string{}}
	}

	acc := newStatsAccumulator()

	type frame struct {
		node *models.ThreadNode
		next int
	}
	stack := []frame{{node: root}}
	var results []subtree

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == 0 {
			acc.visit(top.node)
		}

		if top.next < len(top.node.Children) {
			child := top.node.Children[top.next]
			top.next++
			stack = append(stack, frame{node: child})
			continue
		}

		// All children are done; their results are the last entries
		n := len(top.node.Children)
		s := subtree{total: 1, branches: n}
		for _, child := range results[len(results)-n:] {
			s.total += child.total
			s.branches += child.branches
			if child.maxDepth+1 > s.maxDepth {
				s.maxDepth = child.maxDepth + 1
			}
		}
		results = append(results[:len(results)-n], s)
		stack = stack[:len(stack)-1]
	}

	rootStats := results[0]
	return acc.statistics(rootStats)
}

// AggregateForest annotates every tree of the forest. Trees are disjoint, so
// with workers > 1 they are aggregated concurrently.
func AggregateForest(forest *models.Forest, workers int) {
	if workers <= 1 || len(forest.Trees) < 2 {
		for _, tree := range forest.Trees {
			tree.Stats = Aggregate(tree.Root)
		}
		return
	}

	if workers > len(forest.Trees) {
		workers = len(forest.Trees)
	}

	jobs := make(chan *models.Tree, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tree := range jobs {
				tree.Stats = Aggregate(tree.Root)
			}
		}()
	}

	for _, tree := range forest.Trees {
		jobs <- tree
	}
	close(jobs)
	wg.Wait()
}

// statsAccumulator collects the per-message counters that do not depend on
// tree shape
type statsAccumulator struct {
	participants map[string]struct{}
	replies      int
	forwards     int
	externals    int
	first, last  time.Time
}

func newStatsAccumulator() *statsAccumulator {
	return &statsAccumulator{participants: make(map[string]struct{})}
}

func (a *statsAccumulator) visit(node *models.ThreadNode) {
	msg := node.Message
	if msg == nil {
		return
	}

	// Raw sender string, case-sensitive
	if msg.From != "" {
		a.participants[msg.From] = struct{}{}
	}
	if node.Parent != nil {
		a.replies++
	}
	if msg.Forward || IsForwardSubject(msg.Subject) {
		a.forwards++
	}
	if msg.External {
		a.externals++
	}

	if date, ok := ParseDate(msg.Date); ok {
		if a.first.IsZero() || date.Before(a.first) {
			a.first = date
		}
		if a.last.IsZero() || date.After(a.last) {
			a.last = date
		}
	}
}

func (a *statsAccumulator) statistics(root subtree) models.ThreadStatistics {
	participants := make([]string, 0, len(a.participants))
	for p := range a.participants {
		participants = append(participants, p)
	}
	sort.Strings(participants)

	stats := models.ThreadStatistics{
		TotalMessages:    root.total,
		MaxDepth:         root.maxDepth,
		BranchCount:      root.branches,
		Participants:     participants,
		ParticipantCount: len(participants),
		ReplyCount:       a.replies,
		ForwardCount:     a.forwards,
		ExternalCount:    a.externals,
	}
	if !a.first.IsZero() {
		stats.DateRange = &models.DateRange{
			Start: a.first.UTC().Format(time.RFC3339),
			End:   a.last.UTC().Format(time.RFC3339),
		}
	}
	return stats
}

// ParseDate parses an RFC 5322 Date header, falling back to RFC 3339 as used
// by load-file exports
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	var h mail.Header
	h.Set("Date", value)
	if date, err := h.Date(); err == nil && !date.IsZero() {
		return date, true
	}

	if date, err := time.Parse(time.RFC3339, value); err == nil {
		return date, true
	}
	return time.Time{}, false
}
