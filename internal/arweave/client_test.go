package arweave

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/", WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	require.Error(t, err)

	c, err := NewClient("https://arweave.net/")
	require.NoError(t, err)
	require.Equal(t, "https://arweave.net", c.BaseURL())
}

func TestClient_Status(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tx/confirmed/status":
			_, _ = w.Write([]byte(`{"block_height":10,"block_indep_hash":"h","number_of_confirmations":3}`))
		case "/tx/pending/status":
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte("Pending"))
		case "/tx/broken/status":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	s, err := c.Status(ctx, "confirmed")
	require.NoError(t, err)
	require.True(t, s.Found)
	require.Equal(t, 3, s.Confirmations)
	require.EqualValues(t, 10, s.BlockHeight)
	require.Equal(t, StateConfirmed, s.State(2))

	s, err = c.Status(ctx, "pending")
	require.NoError(t, err)
	require.True(t, s.Found)
	require.Zero(t, s.Confirmations)
	require.Equal(t, StateConfirming, s.State(2))

	s, err = c.Status(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, s.Found)

	_, err = c.Status(ctx, "broken")
	var herr *HTTPError
	require.True(t, errors.As(err, &herr))
	require.Equal(t, http.StatusInternalServerError, herr.Status)
}

func TestClient_QueryFollowsPages(t *testing.T) {
	var seen []QueryVariables
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		var req GraphQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = append(seen, req.Variables)

		var resp GraphQLResponse
		switch req.Variables.After {
		case "":
			resp.Data.Transactions.PageInfo.HasNextPage = true
			resp.Data.Transactions.Edges = edges("a", "b")
		case "b":
			resp.Data.Transactions.Edges = edges("c")
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	ids, err := c.Query(context.Background(), Query{
		Owners: []string{"addr"},
		Tags:   []TagFilter{{Name: "app", Values: []string{"addr"}}},
		First:  2,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, ids)
	require.Len(t, seen, 2)
	require.Equal(t, []string{"addr"}, seen[0].Owners)
	require.Equal(t, 2, seen[0].First)
	require.Equal(t, "b", seen[1].After)
}

func TestClient_QueryErrors(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"boom"}]}`))
	})
	_, err := c.Query(context.Background(), Query{})
	require.EqualError(t, err, "graphql: boom")
}

func TestClient_PrepareAndSubmit(t *testing.T) {
	var posted Transaction
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/tx_anchor":
			_, _ = w.Write([]byte("YW5jaG9y"))
		case r.URL.Path == "/price/3":
			_, _ = w.Write([]byte("42"))
		case r.URL.Path == "/tx" && r.Method == http.MethodPost:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	ctx := context.Background()

	tx := NewTransaction([]byte("abc"))
	require.NoError(t, c.Prepare(ctx, tx))
	require.Equal(t, "YW5jaG9y", tx.LastTx)
	require.Equal(t, "42", tx.Reward)

	require.NoError(t, c.Submit(ctx, tx))
	require.Equal(t, []byte("abc"), []byte(posted.Data))
	require.Equal(t, "3", posted.DataSize)

	_, err := c.Data(ctx, "missing")
	var herr *HTTPError
	require.True(t, errors.As(err, &herr))
	require.Equal(t, http.StatusBadRequest, herr.Status)
}

func edges(ids ...string) []TransactionEdge {
	out := make([]TransactionEdge, len(ids))
	for i, id := range ids {
		out[i].Cursor = id
		out[i].Node.ID = id
	}
	return out
}
