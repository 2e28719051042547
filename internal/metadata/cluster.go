// Package metadata defines the cluster and auth documents served by the
// semilattice endpoints, how they render and how concurrent copies join.
package metadata

import (
	"gihan9a/semilattice/internal/adapter"
	"gihan9a/semilattice/internal/vclock"

	"github.com/google/uuid"
)

// Durability values accepted by a namespace
const (
	DurabilityHard = "hard"
	DurabilitySoft = "soft"
)

// Machine is a server taking part in the cluster
type Machine struct {
	Name       vclock.Versioned[string]    `json:"name"`
	Datacenter vclock.Versioned[uuid.UUID] `json:"datacenter"`
}

// Datacenter groups machines
type Datacenter struct {
	Name vclock.Versioned[string] `json:"name"`
}

// Database groups namespaces
type Database struct {
	Name vclock.Versioned[string] `json:"name"`
}

// Roles lists the machines serving one shard
type Roles struct {
	Primary     string   `json:"primary"`
	Secondaries []string `json:"secondaries"`
}

// Blueprint assigns machines to every shard of a namespace, by shard name
type Blueprint map[string]Roles

// Namespace is a table. ReplicaAffinities maps datacenter ids to the number
// of secondaries wanted there.
type Namespace struct {
	Name              vclock.Versioned[string]         `json:"name"`
	Database          vclock.Versioned[uuid.UUID]      `json:"database"`
	PrimaryDatacenter vclock.Versioned[uuid.UUID]      `json:"primary_uuid"`
	ReplicaAffinities vclock.Versioned[map[string]int] `json:"replica_affinities"`
	Shards            vclock.Versioned[[]string]       `json:"shards"`
	PrimaryKey        vclock.Versioned[string]         `json:"primary_key"`
	Durability        vclock.Versioned[string]         `json:"durability"`
	Blueprint         vclock.Versioned[Blueprint]      `json:"blueprint"`
}

// Namespaces is one collection of namespaces
type Namespaces = map[uuid.UUID]*vclock.Deletable[Namespace]

// Cluster is the cluster-wide metadata document
type Cluster struct {
	Machines            map[uuid.UUID]*vclock.Deletable[Machine]    `json:"machines"`
	Datacenters         map[uuid.UUID]*vclock.Deletable[Datacenter] `json:"datacenters"`
	Databases           map[uuid.UUID]*vclock.Deletable[Database]   `json:"databases"`
	RDBNamespaces       Namespaces                                  `json:"rdb_namespaces"`
	MemcachedNamespaces Namespaces                                  `json:"memcached_namespaces"`
	DummyNamespaces     Namespaces                                  `json:"dummy_namespaces"`
}

// NamespaceCollections returns every namespace collection by protocol name
func (c *Cluster) NamespaceCollections() map[string]*Namespaces {
	return map[string]*Namespaces{
		"rdb_namespaces":       &c.RDBNamespaces,
		"memcached_namespaces": &c.MemcachedNamespaces,
		"dummy_namespaces":     &c.DummyNamespaces,
	}
}

// Join merges two copies of the cluster document
func (c Cluster) Join(o Cluster) Cluster {
	return Cluster{
		Machines:            vclock.JoinMap(c.Machines, o.Machines, Machine.Join),
		Datacenters:         vclock.JoinMap(c.Datacenters, o.Datacenters, Datacenter.Join),
		Databases:           vclock.JoinMap(c.Databases, o.Databases, Database.Join),
		RDBNamespaces:       vclock.JoinMap(c.RDBNamespaces, o.RDBNamespaces, Namespace.Join),
		MemcachedNamespaces: vclock.JoinMap(c.MemcachedNamespaces, o.MemcachedNamespaces, Namespace.Join),
		DummyNamespaces:     vclock.JoinMap(c.DummyNamespaces, o.DummyNamespaces, Namespace.Join),
	}
}

func (m Machine) Join(o Machine) Machine {
	return Machine{
		Name:       m.Name.Join(o.Name),
		Datacenter: m.Datacenter.Join(o.Datacenter),
	}
}

func (d Datacenter) Join(o Datacenter) Datacenter {
	return Datacenter{Name: d.Name.Join(o.Name)}
}

func (d Database) Join(o Database) Database {
	return Database{Name: d.Name.Join(o.Name)}
}

func (n Namespace) Join(o Namespace) Namespace {
	return Namespace{
		Name:              n.Name.Join(o.Name),
		Database:          n.Database.Join(o.Database),
		PrimaryDatacenter: n.PrimaryDatacenter.Join(o.PrimaryDatacenter),
		ReplicaAffinities: n.ReplicaAffinities.Join(o.ReplicaAffinities),
		Shards:            n.Shards.Join(o.Shards),
		PrimaryKey:        n.PrimaryKey.Join(o.PrimaryKey),
		Durability:        n.Durability.Join(o.Durability),
		Blueprint:         n.Blueprint.Join(o.Blueprint),
	}
}

// WrapCluster builds the adapter tree of a cluster document
func WrapCluster(c *Cluster, ctx vclock.Context) adapter.Node {
	return adapter.NewFields(
		adapter.Field{Name: "machines", Node: adapter.NewKeyed(&c.Machines, ctx, adapter.UUIDKeys, machineNode, zero[Machine])},
		adapter.Field{Name: "datacenters", Node: adapter.NewKeyed(&c.Datacenters, ctx, adapter.UUIDKeys, datacenterNode, zero[Datacenter])},
		adapter.Field{Name: "databases", Node: adapter.NewKeyed(&c.Databases, ctx, adapter.UUIDKeys, databaseNode, zero[Database])},
		adapter.Field{Name: "rdb_namespaces", Node: adapter.NewKeyed(&c.RDBNamespaces, ctx, adapter.UUIDKeys, namespaceNode, newNamespace(ctx))},
		adapter.Field{Name: "memcached_namespaces", Node: adapter.NewKeyed(&c.MemcachedNamespaces, ctx, adapter.UUIDKeys, namespaceNode, newNamespace(ctx))},
		adapter.Field{Name: "dummy_namespaces", Node: adapter.NewKeyed(&c.DummyNamespaces, ctx, adapter.UUIDKeys, namespaceNode, newNamespace(ctx))},
	)
}

func machineNode(m *Machine, ctx vclock.Context) adapter.Node {
	return adapter.NewFields(
		adapter.Field{Name: "name", Node: adapter.NewLeaf(&m.Name, ctx)},
		adapter.Field{Name: "datacenter_uuid", Node: adapter.NewLeaf(&m.Datacenter, ctx)},
	)
}

func datacenterNode(d *Datacenter, ctx vclock.Context) adapter.Node {
	return adapter.NewFields(
		adapter.Field{Name: "name", Node: adapter.NewLeaf(&d.Name, ctx)},
	)
}

func databaseNode(d *Database, ctx vclock.Context) adapter.Node {
	return adapter.NewFields(
		adapter.Field{Name: "name", Node: adapter.NewLeaf(&d.Name, ctx)},
	)
}

func namespaceNode(n *Namespace, ctx vclock.Context) adapter.Node {
	return adapter.NewFields(
		adapter.Field{Name: "name", Node: adapter.NewLeaf(&n.Name, ctx)},
		adapter.Field{Name: "database", Node: adapter.NewLeaf(&n.Database, ctx)},
		adapter.Field{Name: "primary_uuid", Node: adapter.NewLeaf(&n.PrimaryDatacenter, ctx)},
		adapter.Field{Name: "replica_affinities", Node: adapter.NewLeaf(&n.ReplicaAffinities, ctx)},
		adapter.Field{Name: "shards", Node: adapter.NewLeaf(&n.Shards, ctx)},
		adapter.Field{Name: "primary_key", Node: adapter.NewLeaf(&n.PrimaryKey, ctx, adapter.Immutable[string]())},
		adapter.Field{Name: "durability", Node: adapter.NewLeaf(&n.Durability, ctx, adapter.OneOf(DurabilityHard, DurabilitySoft))},
		adapter.Field{Name: "blueprint", Node: adapter.NewLeaf(&n.Blueprint, ctx, adapter.ReadOnly[Blueprint]())},
	)
}

// newNamespace returns the initial value of namespaces created over HTTP.
// The primary key is left unset so the creating request may choose it.
func newNamespace(ctx vclock.Context) func() Namespace {
	return func() Namespace {
		return Namespace{
			Durability: vclock.NewVersioned(ctx, DurabilityHard),
		}
	}
}

func zero[T any]() T {
	var v T
	return v
}
