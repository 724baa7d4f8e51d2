package cluster

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	stdsync "sync"
	"sync/atomic"

	"github.com/joeycumines/go-coro/redis/client"
	"github.com/joeycumines/go-coro/redis/resp"
)

// maxRedirects bounds MOVED/ASK redirects followed per request
// (spec.md §4.13 step 4).
const maxRedirects = 2

// ErrAutoSlotUnsupported is returned when Opt.Slot is AutoSlot: deriving
// the slot automatically from the command is reserved for future use.
var ErrAutoSlotUnsupported = errors.New("cluster: AUTO_SLOT is reserved for future use")

// NoBlock is Opt.BlockMs's value for ordinary (non-blocking) commands.
const NoBlock = client.NoBlock

// Config holds cluster-client-wide behavior, separate from the per-node
// connection Options template.
type Config struct {
	// ReadOnlyReplicas, when true, routes Opt.ReadOnly requests to a
	// round-robin replica instead of the primary.
	ReadOnlyReplicas bool
	// RetryMax bounds retries across replicas (or against the primary)
	// before a request gives up, mirroring client.Options.RetryMax.
	RetryMax int
}

// Opt configures one Execute call.
type Opt struct {
	// Slot selects the hash slot: a literal value in [0, SlotCount), the
	// AutoSlot or AnyPrimary sentinels, or a negative index -i meaning
	// "hash command[i]".
	Slot int
	// ReadOnly marks the command safe to serve from a replica.
	ReadOnly bool
	// BlockMs is NoBlock for ordinary commands, or a blocking command's
	// timeout in milliseconds (spec.md §4.12's watch-timeout rule,
	// applied per node connection via client.Client.Execute).
	BlockMs int32
}

// Client dispatches commands across a Redis Cluster: it keeps a shared
// slot table (refreshed via CLUSTER SLOTS) and a pool of per-node
// connections, and follows MOVED/ASK redirects transparently
// (spec.md §4.13).
type Client struct {
	table          *Table
	connTemplate   client.Options
	cfg            Config
	mu             stdsync.Mutex
	conns          map[string]*client.Client
	replicaCounter atomic.Uint64
}

// NewClient builds a cluster Client. connTemplate supplies every
// per-node Options field except Host/Port, which are filled in per
// dial. refreshFn issues CLUSTER SLOTS against any known node and
// parses the reply into a SlotsTable.
func NewClient(connTemplate client.Options, cfg Config, refreshFn func(ctx context.Context) (*SlotsTable, error)) *Client {
	return &Client{
		table:        NewTable(refreshFn),
		connTemplate: connTemplate,
		cfg:          cfg,
		conns:        make(map[string]*client.Client),
	}
}

// Table exposes the underlying slot table, e.g. so a refreshFn
// implementation can pick a seed node from a prior snapshot.
func (c *Client) Table() *Table { return c.table }

func (c *Client) connFor(ctx context.Context, node Node) (*client.Client, error) {
	addr := node.Addr()

	c.mu.Lock()
	if cl, ok := c.conns[addr]; ok {
		c.mu.Unlock()
		return cl, nil
	}
	c.mu.Unlock()

	o := c.connTemplate
	o.Host = node.Host
	o.Port = node.Port
	cl, err := client.Dial(ctx, o)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.conns[addr]; ok {
		c.mu.Unlock()
		cl.Disconnect()
		return existing, nil
	}
	c.conns[addr] = cl
	c.mu.Unlock()
	return cl, nil
}

// resolveSlot implements spec.md §4.13's Opt.Slot resolution: literal
// slot, AutoSlot (rejected), AnyPrimary (random), or a negative index
// hashing the corresponding command argument.
func (c *Client) resolveSlot(opt Opt, command [][]byte) (int, error) {
	switch opt.Slot {
	case AutoSlot:
		return 0, ErrAutoSlotUnsupported
	case AnyPrimary:
		return rand.IntN(SlotCount), nil
	}
	if opt.Slot >= 0 {
		if opt.Slot >= SlotCount {
			return 0, fmt.Errorf("cluster: slot %d out of range", opt.Slot)
		}
		return opt.Slot, nil
	}
	idx := -opt.Slot
	if idx >= len(command) {
		return 0, fmt.Errorf("cluster: slot index %d out of range for a %d-argument command", idx, len(command))
	}
	return KeySlot(command[idx]), nil
}

// Execute routes command to the node group owning its slot, retrying
// across replicas for read-only commands and following MOVED/ASK
// redirects up to maxRedirects times (spec.md §4.13 steps 2-5).
func (c *Client) Execute(ctx context.Context, opt Opt, command ...[]byte) (resp.Value, error) {
	slot, err := c.resolveSlot(opt, command)
	if err != nil {
		return resp.Value{}, err
	}

	table, err := c.table.EnsureFresh(ctx)
	if err != nil {
		return resp.Value{}, err
	}
	group, ok := table.Group(slot)
	if !ok {
		return resp.Value{}, fmt.Errorf("cluster: no node group owns slot %d", slot)
	}

	target := group.Primary
	lastHost := target.Host
	asking := false

	for redirects := 0; ; redirects++ {
		var v resp.Value
		var err error
		switch {
		case asking:
			v, err = c.executeAsking(ctx, target, command)
		case redirects == 0 && opt.ReadOnly && c.cfg.ReadOnlyReplicas && len(group.Replicas) > 0:
			v, err = c.executeOnReplicas(ctx, opt.BlockMs, group, command)
		default:
			v, err = c.executeOnNode(ctx, opt.BlockMs, target, command)
		}
		if err != nil {
			return resp.Value{}, err
		}

		if host, port, ok := parseMoved(v); ok {
			c.table.MarkOutdated()
			if redirects >= maxRedirects {
				return v, nil
			}
			if host == "" {
				host = lastHost
			}
			target = Node{Host: host, Port: port}
			lastHost = host
			asking = false
			continue
		}
		if host, port, ok := parseAsk(v); ok {
			if redirects >= maxRedirects {
				return v, nil
			}
			if host == "" {
				host = lastHost
			}
			target = Node{Host: host, Port: port}
			lastHost = host
			asking = true
			continue
		}
		return v, nil
	}
}

func (c *Client) executeOnNode(ctx context.Context, blockMs int32, node Node, command [][]byte) (resp.Value, error) {
	cl, err := c.connFor(ctx, node)
	if err != nil {
		return resp.Value{}, err
	}
	return cl.Execute(ctx, blockMs, command...)
}

// executeAsking sends ASKING and the original command as a single
// pipelined batch, per spec.md §4.13 step 4, and returns the second
// reply.
func (c *Client) executeAsking(ctx context.Context, node Node, command [][]byte) (resp.Value, error) {
	cl, err := c.connFor(ctx, node)
	if err != nil {
		return resp.Value{}, err
	}
	vs, err := cl.Pipeline(ctx, [][][]byte{{[]byte("ASKING")}, command})
	if err != nil {
		return resp.Value{}, err
	}
	if len(vs) != 2 {
		return resp.Value{}, fmt.Errorf("cluster: ASKING pipeline: expected 2 replies, got %d", len(vs))
	}
	return vs[1], nil
}

// executeOnReplicas round-robins across group's replicas, retrying up
// to cfg.RetryMax times on a connection error or a non-redirect error
// reply (spec.md §4.13 step 3).
func (c *Client) executeOnReplicas(ctx context.Context, blockMs int32, group *NodeGroup, command [][]byte) (resp.Value, error) {
	n := len(group.Replicas)
	start := c.replicaCounter.Add(1)

	var lastErr error
	attempts := c.cfg.RetryMax + 1
	if attempts > n {
		attempts = n
	}
	for i := 0; i < attempts; i++ {
		node := group.Replicas[(int(start)+i)%n]
		v, err := c.executeOnNode(ctx, blockMs, node, command)
		if err != nil {
			lastErr = err
			continue
		}
		if isRetryableReplicaError(v) {
			lastErr = fmt.Errorf("cluster: replica %s: %s", node.Addr(), v.Str)
			continue
		}
		return v, nil
	}
	if lastErr != nil {
		return resp.Value{}, lastErr
	}
	return resp.Value{}, fmt.Errorf("cluster: no replicas available for slot")
}
