package cluster

import (
	"context"
	"fmt"
	stdsync "sync"

	csync "github.com/joeycumines/go-coro/coro/sync"
	"github.com/joeycumines/go-coro/redis/resp"
)

// Node is one cluster member.
type Node struct {
	Host string
	Port int
	ID   string // optional node-id, when the server reports one
}

// Addr returns host:port, the table's dedup/lookup key.
func (n Node) Addr() string { return fmt.Sprintf("%s:%d", n.Host, n.Port) }

// NodeGroup is the primary and its replicas serving a contiguous slot
// range.
type NodeGroup struct {
	Primary  Node
	Replicas []Node
}

// SlotsTable is an immutable snapshot produced by parsing one CLUSTER
// SLOTS reply: a slot→node-group index (primary plus replicas) and every
// distinct node keyed by host:port (spec.md §4.13).
type SlotsTable struct {
	bySlot [SlotCount]*NodeGroup
	nodes  map[string]Node
}

// Group returns the node group owning slot, if mapped.
func (t *SlotsTable) Group(slot int) (*NodeGroup, bool) {
	if slot < 0 || slot >= SlotCount {
		return nil, false
	}
	g := t.bySlot[slot]
	return g, g != nil
}

// Nodes returns every distinct node in the table, keyed by host:port.
func (t *SlotsTable) Nodes() map[string]Node { return t.nodes }

// ParseClusterSlots parses a CLUSTER SLOTS reply into a SlotsTable.
// requestHost substitutes for a null host field ("same host as request",
// spec.md §4.13). Nodes reporting host "?" are excluded from the
// deduplicated node lists.
func ParseClusterSlots(v resp.Value, requestHost string) (*SlotsTable, error) {
	if v.Kind != resp.KindArray {
		return nil, fmt.Errorf("cluster: CLUSTER SLOTS: expected array reply, got %s", v.Kind)
	}

	t := &SlotsTable{nodes: make(map[string]Node)}
	for _, entry := range v.Array {
		if entry.Kind != resp.KindArray || len(entry.Array) < 3 {
			return nil, fmt.Errorf("cluster: malformed slot range entry")
		}
		start := int(entry.Array[0].Int)
		end := int(entry.Array[1].Int)
		if start < 0 || end >= SlotCount || start > end {
			return nil, fmt.Errorf("cluster: invalid slot range [%d,%d]", start, end)
		}

		group := &NodeGroup{}
		for i, nodeVal := range entry.Array[2:] {
			node, err := parseNode(nodeVal, requestHost)
			if err != nil {
				return nil, err
			}
			if node.Host == "?" {
				continue
			}
			if i == 0 {
				group.Primary = node
			} else {
				group.Replicas = append(group.Replicas, node)
			}
			t.nodes[node.Addr()] = node
		}

		for s := start; s <= end; s++ {
			t.bySlot[s] = group
		}
	}
	return t, nil
}

func parseNode(v resp.Value, requestHost string) (Node, error) {
	if v.Kind != resp.KindArray || len(v.Array) < 2 {
		return Node{}, fmt.Errorf("cluster: malformed node entry")
	}
	host := requestHost
	if v.Array[0].Kind != resp.KindNull {
		host = string(v.Array[0].Str)
	}
	port := int(v.Array[1].Int)
	var id string
	if len(v.Array) >= 3 && v.Array[2].Kind == resp.KindBulkString {
		id = string(v.Array[2].Str)
	}
	return Node{Host: host, Port: port, ID: id}, nil
}

// Table holds a shared, refreshable SlotsTable. Refreshes are serialized
// by a coroutine-mutex so concurrent callers needing a fresh table
// coalesce onto a single CLUSTER SLOTS round-trip (spec.md §4.13).
type Table struct {
	mu        stdsync.RWMutex // guards table/outdated: stdlib RWMutex, since reads never suspend
	refreshMu *csync.Mutex    // serializes the (suspending) refresh operation itself
	table     *SlotsTable
	outdated  bool
	refreshFn func(ctx context.Context) (*SlotsTable, error)
}

// NewTable returns a Table with no initial snapshot; the first
// EnsureFresh call triggers refreshFn.
func NewTable(refreshFn func(ctx context.Context) (*SlotsTable, error)) *Table {
	return &Table{refreshMu: csync.NewMutex(), refreshFn: refreshFn}
}

// MarkOutdated flags the current snapshot as stale (spec.md §9: advisory
// only — concurrent in-flight requests may still observe the old table;
// only the next EnsureFresh call is guaranteed to refresh).
func (t *Table) MarkOutdated() {
	t.mu.Lock()
	t.outdated = true
	t.mu.Unlock()
}

// Snapshot returns the current table and whether a refresh is warranted
// (absent or marked outdated).
func (t *Table) Snapshot() (*SlotsTable, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table, t.table == nil || t.outdated
}

// EnsureFresh returns the current table, refreshing first if absent,
// errored on prior attempts, or marked outdated (spec.md §4.13 step 1).
func (t *Table) EnsureFresh(ctx context.Context) (*SlotsTable, error) {
	if cur, stale := t.Snapshot(); !stale {
		return cur, nil
	}
	if err := t.refreshMu.Lock(ctx); err != nil {
		return nil, err
	}
	defer t.refreshMu.Unlock()

	if cur, stale := t.Snapshot(); !stale {
		return cur, nil
	}
	fresh, err := t.refreshFn(ctx)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.table = fresh
	t.outdated = false
	t.mu.Unlock()
	return fresh, nil
}
