package models

// ThreadNode is one message placed into a reply tree
type ThreadNode struct {
	Message  *Message
	Parent   *ThreadNode
	Children []*ThreadNode
}

// IsRoot reports whether the node has no parent
func (n *ThreadNode) IsRoot() bool {
	return n.Parent == nil
}

// ThreadStatistics is derived from a tree and never mutated afterwards
type ThreadStatistics struct {
	TotalMessages    int        `json:"total_messages" yaml:"total_messages"`
	MaxDepth         int        `json:"max_depth" yaml:"max_depth"`
	BranchCount      int        `json:"branch_count" yaml:"branch_count"`
	Participants     []string   `json:"participants" yaml:"participants"`
	ParticipantCount int        `json:"participant_count" yaml:"participant_count"`
	ReplyCount       int        `json:"reply_count" yaml:"reply_count"`
	ForwardCount     int        `json:"forward_count" yaml:"forward_count"`
	ExternalCount    int        `json:"external_count" yaml:"external_count"`
	DateRange        *DateRange `json:"date_range,omitempty" yaml:"date_range,omitempty"`
}

// DateRange holds the earliest and latest parseable dates in a thread (RFC 3339)
type DateRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Tree is a root node and the statistics of everything below it
type Tree struct {
	Root  *ThreadNode
	Stats ThreadStatistics
}

// Forest is the ordered set of reconstructed trees
type Forest struct {
	Trees       []*Tree
	Diagnostics Diagnostics
}

// Diagnostics records how malformed input was recovered during reconstruction
type Diagnostics struct {
	Duplicates   []string `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`       // message ids dropped by first-wins
	CyclesBroken []string `json:"cycles_broken,omitempty" yaml:"cycles_broken,omitempty"` // message ids forced to root
	Unresolved   []string `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`       // message ids whose claimed parent is unknown
	MissingIDs   int      `json:"missing_ids,omitempty" yaml:"missing_ids,omitempty"`
}

// Empty reports whether nothing had to be recovered
func (d Diagnostics) Empty() bool {
	return len(d.Duplicates) == 0 && len(d.CyclesBroken) == 0 && len(d.Unresolved) == 0 && d.MissingIDs == 0
}

// MessageCount returns the number of nodes reachable from every root
func (f *Forest) MessageCount() int {
	count := 0
	for _, tree := range f.Trees {
		stack := []*ThreadNode{tree.Root}
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			count++
			stack = append(stack, node.Children...)
		}
	}
	return count
}

// MessageRecord is the serialized form of a node and its descendants
type MessageRecord struct {
	MessageID   string           `json:"message_id" yaml:"message_id"`
	Subject     string           `json:"subject" yaml:"subject"`
	From        string           `json:"from" yaml:"from"`
	To          string           `json:"to" yaml:"to"`
	Cc          string           `json:"cc" yaml:"cc"`
	Date        string           `json:"date" yaml:"date"`
	InReplyTo   string           `json:"in_reply_to" yaml:"in_reply_to"`
	References  []string         `json:"references" yaml:"references"`
	Body        string           `json:"body" yaml:"body"`
	Attachments []Attachment     `json:"attachments" yaml:"attachments"`
	Depth       int              `json:"depth" yaml:"depth"`
	Children    []*MessageRecord `json:"children" yaml:"children"`
}

// ThreadRecord is one independent thread in the output document
type ThreadRecord struct {
	ThreadID    string           `json:"thread_id" yaml:"thread_id"`
	Subject     string           `json:"subject" yaml:"subject"`
	RootMessage *MessageRecord   `json:"root_message" yaml:"root_message"`
	Statistics  ThreadStatistics `json:"statistics" yaml:"statistics"`
}

// Summary aggregates the whole document
type Summary struct {
	TotalThreads        int    `json:"total_threads" yaml:"total_threads"`
	TotalMessages       int    `json:"total_messages" yaml:"total_messages"`
	ProcessingTimestamp string `json:"processing_timestamp" yaml:"processing_timestamp"`
}

// Document is the structured result handed to persistence and reporting
type Document struct {
	Threads     []ThreadRecord `json:"threads" yaml:"threads"`
	Summary     Summary        `json:"summary" yaml:"summary"`
	Diagnostics *Diagnostics   `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// FindThread returns the thread with the given id
func (d *Document) FindThread(threadID string) (*ThreadRecord, bool) {
	for i := range d.Threads {
		if d.Threads[i].ThreadID == threadID {
			return &d.Threads[i], true
		}
	}
	return nil, false
}
