package semilattice

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"gihan9a/semilattice/internal/adapter"
	"gihan9a/semilattice/internal/vclock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNamespace struct {
	Name vclock.Versioned[string]
}

type testDoc struct {
	A          vclock.Versioned[int]
	B          vclock.Versioned[int]
	Namespaces map[uuid.UUID]*vclock.Deletable[testNamespace]
}

func wrapTestDoc(d *testDoc, ctx vclock.Context) adapter.Node {
	ns := func(n *testNamespace, ctx vclock.Context) adapter.Node {
		return adapter.NewFields(adapter.Field{Name: "name", Node: adapter.NewLeaf(&n.Name, ctx)})
	}
	return adapter.NewFields(
		adapter.Field{Name: "a", Node: adapter.NewLeaf(&d.A, ctx)},
		adapter.Field{Name: "b", Node: adapter.NewLeaf(&d.B, ctx)},
		adapter.Field{Name: "rdb_namespaces", Node: adapter.NewKeyed(&d.Namespaces, ctx, adapter.UUIDKeys, ns, func() testNamespace { return testNamespace{} })},
	)
}

// memStore keeps a document and copies it through JSON like a real store
type memStore struct {
	doc     testDoc
	fetches int
	commits int
	err     error
}

func (s *memStore) Fetch() (testDoc, error) {
	s.fetches++
	var out testDoc
	data, err := json.Marshal(s.doc)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

func (s *memStore) Commit(doc testDoc) error {
	if s.err != nil {
		return s.err
	}
	s.commits++
	s.doc = doc
	return nil
}

type callbackRecorder struct {
	calls int
	prio  PriorityMap
	err   error
}

func (c *callbackRecorder) fn(_ *testDoc, prio PriorityMap) error {
	c.calls++
	c.prio = prio
	return c.err
}

var (
	us   = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	nsID = uuid.MustParse("0e4e3f4e-1b8e-4c2b-9a3e-7d3f5b2a9c11")
)

func newTestApp(t *testing.T, opts ...Option) (*App[testDoc], *memStore, *callbackRecorder) {
	t.Helper()
	ctx := vclock.NewContext(us)
	store := &memStore{doc: testDoc{
		A: vclock.NewVersioned(ctx, 1),
		B: vclock.NewVersioned(ctx, 2),
		Namespaces: map[uuid.UUID]*vclock.Deletable[testNamespace]{
			nsID: vclock.Live(testNamespace{Name: vclock.NewVersioned(ctx, "users")}),
		},
	}}
	cb := &callbackRecorder{}
	return NewApp[testDoc](store, wrapTestDoc, cb.fn, us, opts...), store, cb
}

func body(t *testing.T, res Response) any {
	t.Helper()
	data, err := json.Marshal(res.Body)
	require.NoError(t, err)
	var out any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestGet(t *testing.T) {
	app, store, cb := newTestApp(t)

	res := app.Handle(Request{Method: http.MethodGet, Resource: []string{"a"}})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, 1.0, body(t, res))

	res = app.Handle(Request{Method: http.MethodGet, Resource: []string{"rdb_namespaces", nsID.String(), "name"}})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "users", body(t, res))

	assert.Zero(t, store.commits)
	assert.Zero(t, cb.calls)
}

func TestMergeAndReplace(t *testing.T) {
	t.Run("merge keeps other fields", func(t *testing.T) {
		app, store, cb := newTestApp(t)

		res := app.Handle(Request{Method: http.MethodPost, Body: []byte(`{"a": 9}`)})
		require.Equal(t, http.StatusOK, res.Status)
		assert.Equal(t, 9.0, body(t, res).(map[string]any)["a"])
		assert.Equal(t, 2.0, body(t, res).(map[string]any)["b"])
		assert.Equal(t, 1, store.commits)
		assert.Equal(t, 1, cb.calls)
	})

	t.Run("replace resets other fields", func(t *testing.T) {
		app, store, cb := newTestApp(t)

		res := app.Handle(Request{Method: http.MethodPut, Body: []byte(`{"a": 9}`)})
		require.Equal(t, http.StatusOK, res.Status)
		assert.Equal(t, 9.0, body(t, res).(map[string]any)["a"])
		assert.Equal(t, 0.0, body(t, res).(map[string]any)["b"])
		assert.Equal(t, map[string]any{nsID.String(): nil}, body(t, res).(map[string]any)["rdb_namespaces"])
		assert.Equal(t, 1, store.commits)
		assert.False(t, cb.prio.Default())
	})
}

func TestNotFound(t *testing.T) {
	app, store, _ := newTestApp(t)

	res := app.Handle(Request{Method: http.MethodPost, Resource: []string{"x", "y"}, Body: []byte(`1`)})
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Zero(t, store.commits)

	doc, err := store.Fetch()
	require.NoError(t, err)
	_, err = Resolve(wrapTestDoc(&doc, vclock.NewContext(us)), []string{"x", "y"})
	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, 0, resolveErr.Consumed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveIsDeterministic(t *testing.T) {
	_, store, _ := newTestApp(t)
	path := []string{"rdb_namespaces", nsID.String()}

	names := func() []string {
		doc, err := store.Fetch()
		require.NoError(t, err)
		n, err := Resolve(wrapTestDoc(&doc, vclock.NewContext(us)), path)
		require.NoError(t, err)
		var out []string
		for name := range n.Subfields() {
			out = append(out, name)
		}
		return out
	}

	assert.ElementsMatch(t, names(), names())
	assert.ElementsMatch(t, []string{"name"}, names())
}

func TestEmptyPathResolvesToRoot(t *testing.T) {
	_, store, _ := newTestApp(t)
	doc, err := store.Fetch()
	require.NoError(t, err)

	root := wrapTestDoc(&doc, vclock.NewContext(us))
	n, err := Resolve(root, nil)
	require.NoError(t, err)
	assert.Same(t, root, n)
}

func TestMethodNotAllowed(t *testing.T) {
	for _, method := range []string{http.MethodHead, http.MethodTrace, http.MethodOptions, http.MethodConnect, http.MethodPatch, "BREW"} {
		t.Run(method, func(t *testing.T) {
			app, store, _ := newTestApp(t)
			res := app.Handle(Request{Method: method, Resource: []string{"a"}, Body: []byte(`1`)})
			assert.Equal(t, http.StatusMethodNotAllowed, res.Status)
			assert.Zero(t, store.fetches)
			assert.Zero(t, store.commits)
		})
	}
}

func TestBadBody(t *testing.T) {
	app, store, _ := newTestApp(t)

	for _, method := range []string{http.MethodPost, http.MethodPut} {
		res := app.Handle(Request{Method: method, Body: []byte(`{"a": `)})
		assert.Equal(t, http.StatusBadRequest, res.Status)
		assert.Empty(t, res.Message)
	}
	assert.Zero(t, store.commits)
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name        string
		enforce     bool
		contentType string
		want        int
	}{
		{"not enforced", false, "", http.StatusOK},
		{"missing", true, "", http.StatusUnsupportedMediaType},
		{"wrong", true, "text/plain", http.StatusUnsupportedMediaType},
		{"exact", true, "application/json", http.StatusOK},
		{"with charset", true, "Application/JSON; charset=UTF-8", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, _, _ := newTestApp(t, WithContentTypeCheck(tc.enforce))
			res := app.Handle(Request{
				Method:      http.MethodPost,
				Resource:    []string{"a"},
				Body:        []byte(`3`),
				ContentType: tc.contentType,
			})
			assert.Equal(t, tc.want, res.Status)
		})
	}
}

func TestPriority(t *testing.T) {
	path := []string{"rdb_namespaces", nsID.String()}
	post := func(query url.Values) Request {
		return Request{Method: http.MethodPost, Resource: path, Body: []byte(`{"name": "renamed"}`), Query: query}
	}

	t.Run("default", func(t *testing.T) {
		app, _, cb := newTestApp(t)
		require.Equal(t, http.StatusOK, app.Handle(post(nil)).Status)
		assert.False(t, cb.prio.Default())
		assert.Zero(t, cb.prio.Len())
	})

	t.Run("all", func(t *testing.T) {
		app, _, cb := newTestApp(t)
		require.Equal(t, http.StatusOK, app.Handle(post(url.Values{PriorityParam: {"all"}})).Status)
		assert.True(t, cb.prio.Default())
		assert.True(t, cb.prio.Get(uuid.New()))
	})

	t.Run("changed only", func(t *testing.T) {
		app, _, cb := newTestApp(t)
		require.Equal(t, http.StatusOK, app.Handle(post(url.Values{PriorityParam: {"changed_only"}})).Status)
		assert.True(t, cb.prio.Get(nsID))
		assert.False(t, cb.prio.Get(uuid.New()))
		assert.Equal(t, 1, cb.prio.Len())
	})

	t.Run("bogus", func(t *testing.T) {
		app, store, cb := newTestApp(t)
		res := app.Handle(post(url.Values{PriorityParam: {"bogus"}}))
		assert.Equal(t, http.StatusBadRequest, res.Status)
		assert.Zero(t, store.commits)
		assert.Zero(t, cb.calls)

		doc, err := store.Fetch()
		require.NoError(t, err)
		assert.True(t, doc.Namespaces[nsID].Value.Name.Equal("users"), "no mutation")
	})

	t.Run("changed only outside namespaces", func(t *testing.T) {
		app, store, _ := newTestApp(t)
		res := app.Handle(Request{Method: http.MethodPost, Resource: []string{"a"}, Body: []byte(`5`), Query: url.Values{PriorityParam: {"changed_only"}}})
		assert.Equal(t, http.StatusBadRequest, res.Status)
		assert.Zero(t, store.commits)
	})

	t.Run("ignored by put", func(t *testing.T) {
		app, _, cb := newTestApp(t)
		req := post(url.Values{PriorityParam: {"all"}})
		req.Method = http.MethodPut
		require.Equal(t, http.StatusOK, app.Handle(req).Status)
		assert.False(t, cb.prio.Default())
	})
}

func TestDeleteThenGet(t *testing.T) {
	app, store, cb := newTestApp(t)
	path := []string{"rdb_namespaces", nsID.String()}

	res := app.Handle(Request{Method: http.MethodDelete, Resource: path})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Nil(t, res.Body)
	assert.Equal(t, 1, store.commits)
	assert.False(t, cb.prio.Default())

	res = app.Handle(Request{Method: http.MethodGet, Resource: path})
	require.Equal(t, http.StatusOK, res.Status)
	assert.Nil(t, res.Body)

	res = app.Handle(Request{Method: http.MethodPost, Resource: path, Body: []byte(`{"name": "back"}`)})
	assert.Equal(t, http.StatusGone, res.Status)
	assert.NotEmpty(t, res.Message)
}

func TestDeleteLeafIsRejected(t *testing.T) {
	app, store, _ := newTestApp(t)
	res := app.Handle(Request{Method: http.MethodDelete, Resource: []string{"a"}})
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Contains(t, res.Message, "permission denied")
	assert.Zero(t, store.commits)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		cbErr  error
		status int
	}{
		{"schema mismatch", `{"a": "nine"}`, nil, http.StatusBadRequest},
		{"cannot satisfy goals", `{"a": 9}`, CannotSatisfyGoals("no machines"), http.StatusInternalServerError},
		{"gone from callback", `{"a": 9}`, adapter.Gone("database removed"), http.StatusGone},
		{"unexpected", `{"a": 9}`, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, store, cb := newTestApp(t)
			cb.err = tc.cbErr

			res := app.Handle(Request{Method: http.MethodPost, Body: []byte(tc.body)})
			assert.Equal(t, tc.status, res.Status)
			assert.NotEmpty(t, res.Message)
			assert.Zero(t, store.commits)
		})
	}
}

func TestCommitFailure(t *testing.T) {
	app, store, _ := newTestApp(t)
	store.err = errors.New("disk full")

	res := app.Handle(Request{Method: http.MethodPost, Body: []byte(`{"a": 9}`)})
	assert.Equal(t, http.StatusInternalServerError, res.Status)
}

func TestRoot(t *testing.T) {
	app, _, _ := newTestApp(t)
	root, err := app.Root()
	require.NoError(t, err)

	res := app.Handle(Request{Method: http.MethodGet})
	assert.Equal(t, root, res.Body)
}
