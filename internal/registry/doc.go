// Package registry maintains the authoritative organization record set and
// the append-only signal history per organization.
//
// The service layer owns the merge discipline: all mutation of a given
// organization is serialized through a per-key critical section so two
// signals referencing the same key can never race on the merge, while
// unrelated organizations merge in parallel. It depends on the Repository
// interface defined in this package and should never import from api/.
//
// Repository implementations live in repository/postgres/ and
// repository/memory/.
package registry
