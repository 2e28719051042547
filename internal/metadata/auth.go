package metadata

import (
	"gihan9a/semilattice/internal/adapter"
	"gihan9a/semilattice/internal/vclock"
)

// Auth is the authentication metadata document
type Auth struct {
	AuthKey vclock.Versioned[string] `json:"auth_key"`
}

// Join merges two copies of the auth document
func (a Auth) Join(o Auth) Auth {
	return Auth{AuthKey: a.AuthKey.Join(o.AuthKey)}
}

// WrapAuth builds the adapter tree of an auth document
func WrapAuth(a *Auth, ctx vclock.Context) adapter.Node {
	return adapter.NewFields(
		adapter.Field{Name: "auth_key", Node: adapter.NewLeaf(&a.AuthKey, ctx)},
	)
}
