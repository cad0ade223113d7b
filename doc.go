// Package dijitso implements a distributed just-in-time build-and-cache
// system for dynamically-generated native shared libraries. A caller
// holds an opaque "jitable" identified by a base signature; Jit either
// returns an already-loaded handle, loads one previously cached on
// disk, or drives the full pipeline: invoke a caller-supplied code
// generator, persist the sources, invoke a C/C++ compiler, atomically
// install the result into an on-disk cache, and load it through the
// platform dynamic linker.
//
// The package cooperates across peer processes that share a cache
// directory (the typical case is an NFS-mounted HPC scratch space):
// one peer per physical cache location builds, and the others either
// receive a compiled binary over a caller-supplied channel or simply
// wait. See internal/role for the coordination strategies and
// internal/fsutil for the lock-free install protocol that makes
// concurrent installs onto the same path safe without an external
// lock service.
package dijitso
