//go:build basic || database

package integration

import (
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

var (
	// sharedDevpulsePath holds the path to a shared devpulse binary built once for all tests.
	sharedDevpulsePath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getDevpulseBinary returns the path to the devpulse binary, building it once if needed.
func getDevpulseBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "devpulse-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binPath := filepath.Join(tempDir, "devpulse")
		buildCmd := exec.Command("go", "build", "-o", binPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if out, err := buildCmd.CombinedOutput(); err != nil {
			panic(fmt.Sprintf("failed to build devpulse: %v\n%s", err, out))
		}

		sharedDevpulsePath = binPath
	})

	return sharedDevpulsePath
}

// runDevpulse runs the CLI with an isolated HOME plus env and returns stdout+stderr.
func runDevpulse(t *testing.T, home string, env map[string]string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getDevpulseBinary(), args...)
	cmd.Dir = home
	cmd.Env = append(os.Environ(), "HOME="+home, "GITHUB_TOKEN=", "OPENAI_API_KEY=")
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("Command failed: %s\nOutput: %s", cmd.String(), string(output))
	}
	return string(output), err
}

// skipShort skips container and binary tests under -short.
func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
}

type seedCommit struct {
	file, msg string
	daysAgo   int
}

// seedCommits are spread over the last week so ingest --days-back picks them up.
var seedCommits = []seedCommit{
	{"main.go", "[FEAT] add login flow", 5},
	{"tests/login_test.py", "[TEST] cover login", 5},
	{"main.go", "[FIX] nil session", 3},
	{"README.md", "docs: describe setup", 2},
	{"main.go", "[REFACTOR] split handler", 1},
}

// newLocalRepos creates <root>/acme/api from seedCommits and returns root.
func newLocalRepos(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "acme", "api")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tests"), 0o755))

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	midday := time.Now().UTC().Truncate(24 * time.Hour).Add(12 * time.Hour)
	for i, c := range seedCommits {
		path := filepath.Join(dir, c.file)
		content := fmt.Sprintf("revision %d\n", i)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString(content)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		_, err = wt.Add(c.file)
		require.NoError(t, err)
		_, err = wt.Commit(c.msg, &git.CommitOptions{
			Author: &object.Signature{Name: "dev", Email: "dev@acme.io", When: midday.AddDate(0, 0, -c.daysAgo)},
		})
		require.NoError(t, err)
	}
	return root
}

// localEnv configures the CLI for the repositories under root.
func localEnv(root string) map[string]string {
	return map[string]string{
		"DEVPULSE_PROVIDER":   "local",
		"DEVPULSE_LOCAL_ROOT": root,
		"DEVPULSE_REPOS":      "acme/api",
		"DEVPULSE_TIMEZONE":   "UTC",
		"DEVPULSE_START":      "2 weeks ago",
	}
}

// withEnv merges extra into base.
func withEnv(base map[string]string, extra map[string]string) map[string]string {
	out := maps.Clone(base)
	maps.Copy(out, extra)
	return out
}
