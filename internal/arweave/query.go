package arweave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultPageSize is the largest page most gateways serve.
const DefaultPageSize = 100

// TagFilter matches transactions carrying Name with any of Values.
type TagFilter struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Query selects transactions by owner address and tags (all must match).
type Query struct {
	Owners []string
	Tags   []TagFilter
	First  int
}

// TransactionsQuery is sent verbatim; filters travel as variables.
const TransactionsQuery = `query($owners: [String!], $tags: [TagFilter!], $first: Int, $after: String) {
  transactions(owners: $owners, tags: $tags, first: $first, after: $after) {
    pageInfo { hasNextPage }
    edges { cursor node { id } }
  }
}`

// GraphQLRequest is the POST /graphql body.
type GraphQLRequest struct {
	Query     string         `json:"query"`
	Variables QueryVariables `json:"variables"`
}

type QueryVariables struct {
	Owners []string    `json:"owners,omitempty"`
	Tags   []TagFilter `json:"tags,omitempty"`
	First  int         `json:"first,omitempty"`
	After  string      `json:"after,omitempty"`
}

// GraphQLResponse is the subset of the gateway schema we read.
type GraphQLResponse struct {
	Data struct {
		Transactions TransactionConnection `json:"transactions"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

type TransactionConnection struct {
	PageInfo struct {
		HasNextPage bool `json:"hasNextPage"`
	} `json:"pageInfo"`
	Edges []TransactionEdge `json:"edges"`
}

type TransactionEdge struct {
	Cursor string `json:"cursor"`
	Node   struct {
		ID string `json:"id"`
	} `json:"node"`
}

type GraphQLError struct {
	Message string `json:"message"`
}

// Query returns the ids of every matching transaction, following pages.
// The gateway's order is passed through; callers must not rely on it.
func (c *Client) Query(ctx context.Context, q Query) ([]string, error) {
	first := q.First
	if first <= 0 {
		first = DefaultPageSize
	}
	vars := QueryVariables{Owners: q.Owners, Tags: q.Tags, First: first}

	var ids []string
	for {
		page, err := c.queryPage(ctx, vars)
		if err != nil {
			return nil, err
		}
		for _, e := range page.Edges {
			ids = append(ids, e.Node.ID)
		}
		if !page.PageInfo.HasNextPage || len(page.Edges) == 0 {
			return ids, nil
		}
		vars.After = page.Edges[len(page.Edges)-1].Cursor
	}
}

func (c *Client) queryPage(ctx context.Context, vars QueryVariables) (TransactionConnection, error) {
	body, err := json.Marshal(GraphQLRequest{Query: TransactionsQuery, Variables: vars})
	if err != nil {
		return TransactionConnection{}, fmt.Errorf("json marshal: %w", err)
	}
	status, resp, err := c.do(ctx, http.MethodPost, "/graphql", bytes.NewReader(body), "application/json")
	if err != nil {
		return TransactionConnection{}, err
	}
	if status != http.StatusOK {
		return TransactionConnection{}, &HTTPError{Method: http.MethodPost, Path: "/graphql", Status: status, Body: string(resp)}
	}
	var out GraphQLResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return TransactionConnection{}, fmt.Errorf("json unmarshal: %w", err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return TransactionConnection{}, errors.New("graphql: " + strings.Join(msgs, "; "))
	}
	return out.Data.Transactions, nil
}
