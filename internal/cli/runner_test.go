package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/weavetodo/internal/devnet"
)

type result struct {
	code           int
	stdout, stderr string
}

func run(t *testing.T, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Run(context.Background(), args, &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// testEnv points HOME at a temp dir and returns a running devnet.
func testEnv(t *testing.T) (*devnet.Server, []string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	srv := devnet.New()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, []string{"--gateway", ts.URL, "--theme", "mono"}
}

func TestRun_UsageErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	r := run(t, "done")
	require.Equal(t, 2, r.code)
	require.Contains(t, r.stderr, "usage: weavetodo done <index>")

	r = run(t, "edit", "1")
	require.Equal(t, 2, r.code)
	require.Contains(t, r.stderr, "usage: weavetodo edit <index> <text...>")

	r = run(t, "frobnicate")
	require.Equal(t, 2, r.code)
	require.Contains(t, r.stderr, "unknown subcommand: frobnicate")

	r = run(t, "ls", "--bogus")
	require.Equal(t, 2, r.code)
	require.Contains(t, r.stderr, "--help")

	r = run(t, "ls", "--theme", "solarized")
	require.Equal(t, 2, r.code)
	require.Contains(t, r.stderr, "unknown theme")
}

func TestRun_MissingWallet(t *testing.T) {
	_, flags := testEnv(t)
	r := run(t, append([]string{"ls"}, flags...)...)
	require.Equal(t, 1, r.code)
	require.Contains(t, r.stderr, "no wallet found")
	require.Contains(t, r.stderr, "weavetodo wallet new")
}

func TestRun_MissingConfigFile(t *testing.T) {
	_, flags := testEnv(t)
	r := run(t, append([]string{"whoami", "--config", filepath.Join(t.TempDir(), "nope.yaml")}, flags...)...)
	require.Equal(t, 1, r.code)
	require.Contains(t, r.stderr, "read config")
}

func TestRun_EndToEnd(t *testing.T) {
	srv, flags := testEnv(t)
	cmd := func(args ...string) result {
		t.Helper()
		return run(t, append(args, flags...)...)
	}

	r := cmd("wallet", "new", "--bits", "1024")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "wallet written to")
	address := strings.TrimSpace(r.stdout[strings.Index(r.stdout, "address ")+len("address "):])

	r = cmd("wallet", "new", "--bits", "1024")
	require.Equal(t, 1, r.code, "an existing wallet is never overwritten")

	r = cmd("whoami")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, address)

	r = cmd("ls")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "no items")

	r = cmd("add", "milk")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "ok added")

	r = cmd("add", "two", "eggs")
	require.Equal(t, 0, r.code, r.stderr)

	r = cmd("done", "1")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "ok toggled")

	r = cmd("ls")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, " 1. [x] milk")
	require.Contains(t, r.stdout, " 2. [ ] two eggs")

	r = cmd("rm", "5")
	require.Equal(t, 2, r.code)
	require.Contains(t, r.stderr, "index out of range: have 2, got 5")
	require.Contains(t, r.stderr, "weavetodo ls")

	r = cmd("done", "x")
	require.Equal(t, 2, r.code)
	require.Contains(t, r.stderr, "done: not a number: x")

	r = cmd("edit", "2", "bread")
	require.Equal(t, 0, r.code, r.stderr)

	r = cmd("ls", "--group")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "Pending")
	require.Contains(t, r.stdout, " 2. [ ] bread")
	require.NotContains(t, r.stdout, "eggs")

	r = cmd("rm", "1")
	require.Equal(t, 0, r.code, r.stderr)
	r = cmd("clear")
	require.Equal(t, 0, r.code, r.stderr)
	r = cmd("clear")
	require.Equal(t, 0, r.code, "clearing an empty list publishes again")

	r = cmd("ls")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "no items")

	r = cmd("status")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "submitted")
	require.NotContains(t, r.stdout, "View on explorer")

	srv.Mine()
	srv.Mine()
	r = cmd("status", "--wait")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "confirmed  [██████████] 2/2")
	require.Contains(t, r.stdout, "ok confirmed")
	require.Contains(t, r.stdout, "View on explorer: https://viewblock.io/arweave/tx/")

	r = cmd("status", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	require.Equal(t, 0, r.code, r.stderr)
	require.Contains(t, r.stdout, "unknown to the gateway")
}

func TestRun_OneShotCommandsDoNotPoll(t *testing.T) {
	srv, flags := testEnv(t)
	cmd := func(args ...string) result {
		t.Helper()
		return run(t, append(args, flags...)...)
	}
	for _, args := range [][]string{
		{"wallet", "new", "--bits", "1024"},
		{"ls"},
		{"add", "milk"},
		{"done", "1"},
	} {
		r := cmd(args...)
		require.Equal(t, 0, r.code, r.stderr)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), `route="/tx"`)
	require.NotContains(t, rec.Body.String(), `/status"`, "no confirmation polls without --wait")
}
