// Package role assigns each peer process a builder/receiver/waiter
// role for distributed JIT coordination, given a caller-supplied
// Communicator and a shared cache directory. The core never imports a
// messaging library directly: the caller wires goroutines/channels, a
// thread pool, or an MPI/gRPC binding behind this interface.
package role

import "context"

// Communicator is the collective-communication abstraction the
// core needs to discover which peers share a physical cache
// directory and to build the copy/wait sub-communicators used for
// coordination. It is intentionally minimal: rank/size/barrier plus
// the two primitives needed to agree on a common identifier and to
// detect co-located peers (broadcast, allgather of byte strings) and
// to partition into sub-groups (split).
type Communicator interface {
	Rank() int
	Size() int
	Barrier(ctx context.Context) error
	// Broadcast sends data from rank root to all peers and returns
	// what every peer (including root) ends up holding.
	Broadcast(ctx context.Context, data []byte, root int) ([]byte, error)
	// Allgather returns every peer's data, indexed by rank.
	Allgather(ctx context.Context, data []byte) ([][]byte, error)
	// Split partitions the communicator: peers calling Split with the
	// same color end up together in one returned sub-communicator,
	// ordered by key within it — the MPI_Comm_split contract. Every
	// peer in the parent communicator must call Split, including
	// peers the caller intends to exclude from the resulting group;
	// the role package's copy_comm split uses color 0 for excluded
	// peers and discards the returned communicator for them.
	Split(ctx context.Context, color, key int) (Communicator, error)
}

// Strategy selects how peers are partitioned into builder / receiver
// / waiter roles.
type Strategy int

const (
	// StrategyProcess: every peer builds independently.
	StrategyProcess Strategy = iota
	// StrategyNode: the lowest-ranked peer per physical cache
	// directory builds; the rest wait on it.
	StrategyNode
	// StrategyRoot: the global rank-0 peer is sole builder; one peer
	// per physical cache directory (excluding the builder's own)
	// receives a copy; everyone else waits.
	StrategyRoot
)

// Role is the closed sum type assigned to each peer.
type Role int

const (
	RoleBuilder Role = iota
	RoleReceiver
	RoleWaiter
)

func (r Role) String() string {
	switch r {
	case RoleBuilder:
		return "builder"
	case RoleReceiver:
		return "receiver"
	case RoleWaiter:
		return "waiter"
	default:
		return "unknown"
	}
}

// Assignment is the outcome of coordination: the role this peer plays,
// plus the sub-communicators it should use to ship a compiled blob
// (CopyComm, spanning builder+receivers) and to synchronize with its
// builder before loading from disk (WaitComm, spanning a builder and
// its waiters). Either may be nil when the strategy/role combination
// doesn't need it.
type Assignment struct {
	Role     Role
	CopyComm Communicator
	WaitComm Communicator
}
