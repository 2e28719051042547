// Package blueprint recomputes the machine assignment of every namespace after
// the cluster document changes.
package blueprint

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"gihan9a/semilattice/internal/adapter"
	"gihan9a/semilattice/internal/metadata"
	"gihan9a/semilattice/internal/semilattice"
	"gihan9a/semilattice/internal/vclock"

	"github.com/google/uuid"
)

// DefaultShard names the single shard of a namespace with no shards configured
const DefaultShard = "*"

// DefaultPrimaryKey is given to namespaces created without a primary key
const DefaultPrimaryKey = "id"

// ErrMissingMachine is returned when a machine of the document is not
// reachable, so no blueprint can be trusted
var ErrMissingMachine = errors.New("missing machine")

// Directory reports the machines currently connected to this node
type Directory func() map[uuid.UUID]bool

// Suggester fills in namespace blueprints
type Suggester struct {
	us        uuid.UUID
	directory Directory
	rules     []Rule
	logger    *slog.Logger
}

// NewSuggester creates a suggester writing blueprints as node us. A nil
// directory treats every machine as connected.
func NewSuggester(us uuid.UUID, directory Directory, rules []Rule, logger *slog.Logger) *Suggester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Suggester{us: us, directory: directory, rules: rules, logger: logger}
}

// Fill is the cluster recompute callback. A missing machine leaves every
// blueprint as it was and is not reported to the caller.
func (s *Suggester) Fill(doc *metadata.Cluster, prio semilattice.PriorityMap) error {
	err := s.fill(doc, prio)
	if errors.Is(err, ErrMissingMachine) {
		s.logger.Debug("Skipping blueprint computation", "error", err)
		return nil
	}
	return err
}

// placement tracks live machines and how much work each has been given
type placement struct {
	byDatacenter map[uuid.UUID][]uuid.UUID
	all          []uuid.UUID
	datacenter   map[uuid.UUID]uuid.UUID
	load         map[uuid.UUID]int
}

func (s *Suggester) fill(doc *metadata.Cluster, prio semilattice.PriorityMap) error {
	p, err := s.machines(doc)
	if err != nil {
		return err
	}
	ctx := vclock.NewContext(s.us)

	collections := doc.NamespaceCollections()
	for _, protocol := range slices.Sorted(maps.Keys(collections)) {
		namespaces := *collections[protocol]
		for _, id := range sortedIDs(namespaces) {
			d := namespaces[id]
			if d.Deleted {
				continue
			}
			if err := s.fillNamespace(ctx, doc, protocol, id, &d.Value, p, prio.Get(id)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Suggester) fillNamespace(ctx vclock.Context, doc *metadata.Cluster, protocol string, id uuid.UUID, ns *metadata.Namespace, p *placement, prioritize bool) error {
	if ns.PrimaryKey.Equal("") || len(ns.PrimaryKey.Entries) == 0 {
		ns.PrimaryKey.Upgrade(ctx, DefaultPrimaryKey)
	}

	db, err := ns.Database.Get()
	if err != nil {
		s.logger.Debug("Namespace database in conflict", "namespace", id)
		return nil
	}
	if db != uuid.Nil {
		if d, ok := doc.Databases[db]; !ok || d.Deleted {
			return adapter.Gone("database %s of namespace %s no longer exists", db, id)
		}
	}

	env, ok := namespaceEnv(protocol, ns)
	if !ok {
		s.logger.Debug("Namespace in conflict, leaving blueprint alone", "namespace", id)
		return nil
	}
	for _, rule := range s.rules {
		satisfied, err := rule.Eval(env)
		if err != nil {
			return semilattice.CannotSatisfyGoals("namespace %s: %v", id, err)
		}
		if !satisfied {
			return semilattice.CannotSatisfyGoals("namespace %s violates rule %q", id, rule.Source)
		}
	}

	primaryDC, _ := ns.PrimaryDatacenter.Get()
	affinities, _ := ns.ReplicaAffinities.Get()
	current, _ := ns.Blueprint.Get()

	shards := env.Shards
	if len(shards) == 0 {
		shards = []string{DefaultShard}
	}

	bp := make(metadata.Blueprint, len(shards))
	for _, shard := range shards {
		if !prioritize {
			if roles, ok := current[shard]; ok && p.valid(roles, primaryDC, affinities) {
				p.claim(roles)
				bp[shard] = roles
				continue
			}
		}
		roles, err := p.assign(primaryDC, affinities)
		if err != nil {
			return semilattice.CannotSatisfyGoals("namespace %s shard %s: %v", id, shard, err)
		}
		bp[shard] = roles
	}

	if !ns.Blueprint.Equal(bp) {
		ns.Blueprint.Upgrade(ctx, bp)
	}
	return nil
}

func namespaceEnv(protocol string, ns *metadata.Namespace) (Env, bool) {
	name, err1 := ns.Name.Get()
	shards, err2 := ns.Shards.Get()
	affinities, err3 := ns.ReplicaAffinities.Get()
	pk, err4 := ns.PrimaryKey.Get()
	durability, err5 := ns.Durability.Get()
	_, err6 := ns.PrimaryDatacenter.Get()
	if err := errors.Join(err1, err2, err3, err4, err5, err6); err != nil {
		return Env{}, false
	}

	replicas := 0
	for _, n := range affinities {
		replicas += n
	}
	return Env{
		Name:       name,
		Protocol:   protocol,
		Shards:     shards,
		Replicas:   replicas,
		PrimaryKey: pk,
		Durability: durability,
	}, true
}

// machines collects the live machines of the document
func (s *Suggester) machines(doc *metadata.Cluster) (*placement, error) {
	var connected map[uuid.UUID]bool
	if s.directory != nil {
		connected = s.directory()
	}

	p := &placement{
		byDatacenter: make(map[uuid.UUID][]uuid.UUID),
		datacenter:   make(map[uuid.UUID]uuid.UUID),
		load:         make(map[uuid.UUID]int),
	}
	for _, id := range sortedIDs(doc.Machines) {
		m := doc.Machines[id]
		if m.Deleted {
			continue
		}
		if connected != nil && !connected[id] {
			return nil, fmt.Errorf("%w: %s", ErrMissingMachine, id)
		}
		dc, err := m.Value.Datacenter.Get()
		if err != nil {
			continue
		}
		p.all = append(p.all, id)
		p.datacenter[id] = dc
		p.byDatacenter[dc] = append(p.byDatacenter[dc], id)
	}
	return p, nil
}

func (p *placement) candidates(dc uuid.UUID) []uuid.UUID {
	if dc == uuid.Nil {
		return p.all
	}
	return p.byDatacenter[dc]
}

// valid reports whether roles still match the live machines and the
// namespace's placement goals
func (p *placement) valid(roles metadata.Roles, primaryDC uuid.UUID, affinities map[string]int) bool {
	primary, err := uuid.Parse(roles.Primary)
	if err != nil || !slices.Contains(p.candidates(primaryDC), primary) {
		return false
	}

	counts := make(map[string]int)
	for _, s := range roles.Secondaries {
		id, err := uuid.Parse(s)
		if err != nil || id == primary {
			return false
		}
		dc, ok := p.datacenter[id]
		if !ok {
			return false
		}
		counts[dc.String()]++
	}
	for dc, want := range affinities {
		if counts[dc] != want {
			return false
		}
		delete(counts, dc)
	}
	return len(counts) == 0
}

func (p *placement) claim(roles metadata.Roles) {
	if id, err := uuid.Parse(roles.Primary); err == nil {
		p.load[id]++
	}
	for _, s := range roles.Secondaries {
		if id, err := uuid.Parse(s); err == nil {
			p.load[id]++
		}
	}
}

// assign picks the least loaded machines for a new shard
func (p *placement) assign(primaryDC uuid.UUID, affinities map[string]int) (metadata.Roles, error) {
	candidates := p.candidates(primaryDC)
	if len(candidates) == 0 {
		return metadata.Roles{}, fmt.Errorf("no machines available in datacenter %s for the primary", primaryDC)
	}
	primary := p.leastLoaded(candidates, 1)[0]
	roles := metadata.Roles{Primary: primary.String(), Secondaries: []string{}}
	p.load[primary]++

	for _, dc := range slices.Sorted(maps.Keys(affinities)) {
		want := affinities[dc]
		if want <= 0 {
			continue
		}
		id, err := uuid.Parse(dc)
		if err != nil {
			return metadata.Roles{}, fmt.Errorf("invalid datacenter %q in replica affinities", dc)
		}
		var pool []uuid.UUID
		for _, m := range p.byDatacenter[id] {
			if m != primary {
				pool = append(pool, m)
			}
		}
		if len(pool) < want {
			return metadata.Roles{}, fmt.Errorf("datacenter %s has %d machines available, %d replicas wanted", dc, len(pool), want)
		}
		for _, m := range p.leastLoaded(pool, want) {
			roles.Secondaries = append(roles.Secondaries, m.String())
			p.load[m]++
		}
	}
	return roles, nil
}

func (p *placement) leastLoaded(pool []uuid.UUID, n int) []uuid.UUID {
	sorted := slices.Clone(pool)
	slices.SortStableFunc(sorted, func(a, b uuid.UUID) int {
		return p.load[a] - p.load[b]
	})
	return sorted[:n]
}

func sortedIDs[V any](m map[uuid.UUID]*vclock.Deletable[V]) []uuid.UUID {
	ids := slices.Collect(maps.Keys(m))
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	return ids
}
