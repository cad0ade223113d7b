package role

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/xerrors"
)

// discoverPathAccessRanks implements spec.md §4.6's
// discover_path_access_ranks: it returns the sorted set of peer ranks
// (including self) that observe the same physical cache_dir as this
// peer, detected by writing and globbing marker files rather than by
// comparing path strings, since symlinks/bind-mounts/NFS can disguise
// path equality.
func discoverPathAccessRanks(ctx context.Context, comm Communicator, cacheDir string) ([]int, error) {
	rank := comm.Rank()

	var seed []byte
	if rank == 0 {
		seed = []byte(uuid.New().String())
	}
	gBytes, err := comm.Broadcast(ctx, seed, 0)
	if err != nil {
		return nil, xerrors.Errorf("role: broadcast group id: %w", err)
	}
	g := string(gBytes)

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, xerrors.Errorf("role: mkdir %s: %w", cacheDir, err)
	}
	marker := filepath.Join(cacheDir, fmt.Sprintf("rank.%s.%d", g, rank))
	if err := os.WriteFile(marker, nil, 0644); err != nil {
		return nil, xerrors.Errorf("role: write marker %s: %w", marker, err)
	}

	if err := comm.Barrier(ctx); err != nil {
		return nil, xerrors.Errorf("role: barrier: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(cacheDir, fmt.Sprintf("rank.%s.*", g)))
	if err != nil {
		return nil, xerrors.Errorf("role: glob markers: %w", err)
	}
	prefix := fmt.Sprintf("rank.%s.", g)
	var ranks []int
	for _, m := range matches {
		base := filepath.Base(m)
		suffix := strings.TrimPrefix(base, prefix)
		r, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)

	if err := comm.Barrier(ctx); err != nil {
		return nil, xerrors.Errorf("role: barrier: %w", err)
	}
	if err := os.Remove(marker); err != nil && !os.IsNotExist(err) {
		return nil, xerrors.Errorf("role: remove marker %s: %w", marker, err)
	}

	return ranks, nil
}

// Coordinate assigns this peer a role given the chosen strategy, a
// caller-supplied Communicator, and the physical cache directory to
// probe for co-located peers.
func Coordinate(ctx context.Context, comm Communicator, cacheDir string, strategy Strategy) (Assignment, error) {
	coRanks, err := discoverPathAccessRanks(ctx, comm, cacheDir)
	if err != nil {
		return Assignment{}, err
	}
	if len(coRanks) == 0 {
		coRanks = []int{comm.Rank()}
	}
	groupID := coRanks[0] // lowest rank in the co-located set: a canonical, peer-agreed group id

	switch strategy {
	case StrategyProcess:
		if len(coRanks) > 1 {
			return Assignment{}, xerrors.Errorf(
				"role: strategy 'process' requires every peer to have its own physical cache directory, "+
					"but ranks %v share %s", coRanks, cacheDir)
		}
		return Assignment{Role: RoleBuilder}, nil

	case StrategyNode:
		waitComm, err := comm.Split(ctx, groupID, comm.Rank())
		if err != nil {
			return Assignment{}, xerrors.Errorf("role: split wait_comm: %w", err)
		}
		role := RoleWaiter
		if comm.Rank() == groupID {
			role = RoleBuilder
		}
		return Assignment{Role: role, WaitComm: waitComm}, nil

	case StrategyRoot:
		return coordinateRoot(ctx, comm, groupID)

	default:
		return Assignment{}, xerrors.Errorf("role: unknown strategy %d", strategy)
	}
}

// coordinateRoot implements strategy "root": the global rank 0 is the
// sole builder; the lowest-ranked peer in every OTHER physical
// directory is a receiver that gets a copy over copy_comm; everyone
// else waits on their own group's builder-or-receiver over wait_comm.
//
// Every peer — regardless of role — must call the same sequence of
// collective operations (Broadcast, then Split for wait_comm, then
// Split for copy_comm), since Communicator models an MPI-style
// collective where every member of the parent group participates in
// every call.
func coordinateRoot(ctx context.Context, comm Communicator, groupID int) (Assignment, error) {
	rank := comm.Rank()

	var seed []byte
	if rank == 0 {
		seed = []byte(strconv.Itoa(groupID))
	}
	buf, err := comm.Broadcast(ctx, seed, 0)
	if err != nil {
		return Assignment{}, xerrors.Errorf("role: broadcast builder group: %w", err)
	}
	builderGroupID, err := strconv.Atoi(string(buf))
	if err != nil {
		return Assignment{}, xerrors.Errorf("role: parse builder group id: %w", err)
	}
	inBuilderGroup := groupID == builderGroupID

	waitComm, err := comm.Split(ctx, groupID, rank)
	if err != nil {
		return Assignment{}, xerrors.Errorf("role: split wait_comm: %w", err)
	}

	role := RoleWaiter
	switch {
	case rank == 0:
		role = RoleBuilder
	case !inBuilderGroup && rank == groupID:
		role = RoleReceiver
	}

	copyColor := 0
	if rank == 0 || role == RoleReceiver {
		copyColor = 1
	}
	copyComm, err := comm.Split(ctx, copyColor, rank)
	if err != nil {
		return Assignment{}, xerrors.Errorf("role: split copy_comm: %w", err)
	}
	if copyColor == 0 {
		copyComm = nil
	}

	return Assignment{Role: role, WaitComm: waitComm, CopyComm: copyComm}, nil
}
