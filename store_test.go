package vcr_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akupila/vcr"
)

func interaction(t *testing.T, method, uri, body string) vcr.Interaction {
	t.Helper()
	return vcr.NewInteraction(
		mustRequest(t, method, uri, nil, ""),
		&vcr.Response{StatusCode: 200, Status: "OK", Body: []byte(body)},
	)
}

func consume(t *testing.T, s *vcr.Store, req *vcr.Request, set vcr.AttributeSet) string {
	t.Helper()
	resp, ok, err := s.FindAndConsume(req, set)
	require.NoError(t, err)
	require.True(t, ok, "no response for %s", req)
	return string(resp.Body)
}

func TestStore_RotationSaturates(t *testing.T) {
	s := vcr.NewStore(
		interaction(t, "GET", "http://example.com/foo", "response 1"),
		interaction(t, "POST", "http://example.com/", "post response"),
		interaction(t, "GET", "http://example.com/foo", "response 2"),
		interaction(t, "GET", "http://example.com/foo", "response 3"),
	)
	req := mustRequest(t, "GET", "http://example.com/foo", nil, "")

	for _, want := range []string{"response 1", "response 2", "response 3", "response 3", "response 3"} {
		assert.Equal(t, want, consume(t, s, req, vcr.DefaultAttributes))
	}

	post := mustRequest(t, "POST", "http://example.com", nil, "")
	assert.Equal(t, "post response", consume(t, s, post, vcr.DefaultAttributes))
	assert.Equal(t, "post response", consume(t, s, post, vcr.DefaultAttributes))
}

func TestStore_CursorsArePerAttributeSet(t *testing.T) {
	s := vcr.NewStore(
		interaction(t, "GET", "http://example.com/a", "a"),
		interaction(t, "GET", "http://example.com/b", "b"),
	)
	byHost := vcr.MustAttributes(vcr.AttrHost)

	assert.Equal(t, "a", consume(t, s, mustRequest(t, "GET", "http://example.com/a", nil, ""), vcr.DefaultAttributes))
	assert.Equal(t, "a", consume(t, s, mustRequest(t, "GET", "http://example.com/zzz", nil, ""), byHost))
	assert.Equal(t, "b", consume(t, s, mustRequest(t, "GET", "http://example.com/zzz", nil, ""), byHost))
}

func TestStore_RequestStubbedIsReadOnly(t *testing.T) {
	s := vcr.NewStore(
		interaction(t, "GET", "http://example.com/foo", "1"),
		interaction(t, "GET", "http://example.com/foo", "2"),
	)
	req := mustRequest(t, "GET", "http://example.com/foo", nil, "")

	for i := 0; i < 3; i++ {
		ok, err := s.RequestStubbed(req, vcr.DefaultAttributes)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, "1", consume(t, s, req, vcr.DefaultAttributes))

	for _, tc := range []struct{ method, uri string }{
		{"POST", "http://example.com/foo"},
		{"GET", "http://google.com"},
	} {
		miss := mustRequest(t, tc.method, tc.uri, nil, "")
		ok, err := s.RequestStubbed(miss, vcr.DefaultAttributes)
		require.NoError(t, err)
		assert.False(t, ok)

		resp, ok, err := s.FindAndConsume(miss, vcr.DefaultAttributes)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, resp)
	}
}

func TestStore_RecordNew(t *testing.T) {
	s := vcr.NewStore()
	req := mustRequest(t, "GET", "http://example.com/foo", nil, "")

	ok, err := s.RequestStubbed(req, vcr.DefaultAttributes)
	require.NoError(t, err)
	assert.False(t, ok)

	s.RecordNew(interaction(t, "GET", "http://example.com/foo", "1"))
	s.RecordNew(interaction(t, "GET", "http://example.com/foo", "2"))
	assert.Equal(t, "1", consume(t, s, req, vcr.DefaultAttributes))
	assert.Equal(t, "2", consume(t, s, req, vcr.DefaultAttributes))
	assert.Equal(t, "2", consume(t, s, req, vcr.DefaultAttributes))

	// A saturated group continues with responses recorded later.
	s.RecordNew(interaction(t, "GET", "http://example.com/foo", "3"))
	assert.Equal(t, "3", consume(t, s, req, vcr.DefaultAttributes))
	assert.Equal(t, 3, s.Len())
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := vcr.NewStore(interaction(t, "GET", "http://example.com/", "original"))
	req := mustRequest(t, "GET", "http://example.com/", nil, "")

	resp, _, err := s.FindAndConsume(req, vcr.DefaultAttributes)
	require.NoError(t, err)
	resp.Body[0] = 'X'

	assert.Equal(t, "original", consume(t, s, req, vcr.DefaultAttributes))
}

func TestStore_InteractionsAreCopies(t *testing.T) {
	in := interaction(t, "GET", "http://example.com/", "original")
	s := vcr.NewStore(in)
	req := mustRequest(t, "GET", "http://example.com/", nil, "")

	// The caller's interaction is not shared with the store.
	in.Response.Body[0] = 'A'
	in.Request.Method = vcr.MethodPost

	listed := s.Interactions()
	require.Len(t, listed, 1)
	listed[0].Response.Body[0] = 'B'
	listed[0].Request.Method = vcr.MethodPost

	groups, err := s.Groups(vcr.DefaultAttributes)
	require.NoError(t, err)
	groups[0][0].Response.Body[0] = 'C'
	groups[0][0].Request.URI = "http://other.com/"

	ok, err := s.RequestStubbed(req, vcr.DefaultAttributes)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "original", consume(t, s, req, vcr.DefaultAttributes))
	assert.Equal(t, "http://example.com/", s.Interactions()[0].Request.URI)
}

func TestStore_PredicateFallback(t *testing.T) {
	s := vcr.NewStore(interaction(t, "GET", "http://some.wrong.domain.com/path1?p=q", "path1 response"))
	byPath := vcr.MustAttributes(vcr.AttrPath)

	assert.Equal(t, "path1 response", consume(t, s, mustRequest(t, "GET", "http://example.com/path1/", nil, ""), byPath))

	ok, err := s.RequestStubbed(mustRequest(t, "GET", "http://example.com/path3", nil, ""), byPath)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_InvalidAttributeSet(t *testing.T) {
	s := vcr.NewStore(interaction(t, "GET", "http://example.com/", ""))
	set := vcr.MustAttributes(vcr.AttrURI, vcr.AttrPath)

	_, _, err := s.FindAndConsume(mustRequest(t, "GET", "http://example.com/", nil, ""), set)
	assert.ErrorIs(t, err, vcr.ErrConfig)

	_, err = s.RequestStubbed(mustRequest(t, "GET", "http://example.com/", nil, ""), set)
	assert.ErrorIs(t, err, vcr.ErrConfig)
}

func TestStore_Groups(t *testing.T) {
	s := vcr.NewStore(
		interaction(t, "GET", "http://example.com/foo", "1"),
		interaction(t, "POST", "http://example.com/", "p"),
		interaction(t, "GET", "http://example.com/foo", "2"),
	)

	groups, err := s.Groups(vcr.DefaultAttributes)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 2)
	assert.Len(t, groups[1], 1)
	assert.Equal(t, "2", string(groups[0][1].Response.Body))

	all, err := s.Groups(0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0], 3)
}

func TestStore_Concurrent(t *testing.T) {
	const n = 50
	var interactions []vcr.Interaction
	for i := 0; i < n; i++ {
		interactions = append(interactions, interaction(t, "GET", "http://example.com/", "x"))
	}
	s := vcr.NewStore(interactions...)
	req := mustRequest(t, "GET", "http://example.com/", nil, "")

	var wg sync.WaitGroup
	for i := 0; i < n*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.FindAndConsume(req, vcr.DefaultAttributes)
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}
