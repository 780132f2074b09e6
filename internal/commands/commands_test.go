package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfeed/internal/errors"
	"jobfeed/internal/etl"
	"jobfeed/internal/storage"
)

const feed = `[{
	"id": 233,
	"ammattiala": "Jotain",
	"tyotehtava": "X",
	"tyoavain": "1",
	"osoite": "Addr",
	"haku_paattyy_pvm": "2030-12-16",
	"x": 24.9354,
	"y": 60.1695,
	"linkki": "https://tyot.fi/x"
}]`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func feedServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, feed)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "jobfeed dev")

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
}

func TestInitDBRunAndRuns(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("JOBFEED_STATE_PATH", filepath.Join(dir, "state.db"))
	srv := feedServer(t, http.StatusOK)
	db := "--database-url=sqlite:///" + filepath.Join(dir, "jobs.db")

	out, err := execute(t, "init-db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "vantaa_open_applications is ready")

	out, err = execute(t, "run", db, "--source-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Committed 1 record(s) to vantaa_open_applications")

	// same primary key again: the batch is rolled back
	_, err = execute(t, "run", db, "--source-url", srv.URL)
	assert.Equal(t, "persistence", etl.Kind(err))

	out, err = execute(t, "runs", db, "--json")
	require.NoError(t, err)
	var logs []storage.RunLog
	require.NoError(t, json.Unmarshal([]byte(out), &logs))
	require.Len(t, logs, 2)
	assert.Equal(t, etl.StatusError, logs[0].Status)
	assert.Equal(t, "load", logs[0].Stage)
	assert.Equal(t, etl.StatusSuccess, logs[1].Status)

	out, err = execute(t, "runs", db, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "error")
}

func TestRun_FromInputFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("JOBFEED_STATE_PATH", filepath.Join(dir, "state.db"))
	input := filepath.Join(dir, "feed.json")
	require.NoError(t, os.WriteFile(input, []byte(feed), 0o644))
	db := "--database-url=sqlite:///" + filepath.Join(dir, "jobs.db")

	_, err := execute(t, "init-db", db)
	require.NoError(t, err)

	out, err := execute(t, "run", db, "--input", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Committed 1 record(s)")
}

func TestRun_TransportFailure(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("JOBFEED_STATE_PATH", filepath.Join(dir, "state.db"))
	srv := feedServer(t, http.StatusServiceUnavailable)

	_, err := execute(t, "run", "--database-url=sqlite:///"+filepath.Join(dir, "jobs.db"), "--source-url", srv.URL)
	require.Error(t, err)
	assert.Equal(t, "transport", etl.Kind(err))
	assert.Contains(t, FormatError(err), "kind: transport")
	assert.Contains(t, err.Error(), "extract")
}

func TestRun_RequiresDatabaseURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JOBFEED_DATABASE_URL", "")

	_, err := execute(t, "run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	assert.Contains(t, FormatError(err), "hint: set database.url")
}

func TestRuns_WithoutDatabaseURL(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("JOBFEED_STATE_PATH", filepath.Join(dir, "state.db"))
	t.Setenv("JOBFEED_DATABASE_URL", "")

	out, err := execute(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")
}

func TestSchedule_RejectsBadCron(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("JOBFEED_STATE_PATH", filepath.Join(dir, "state.db"))
	t.Setenv("JOBFEED_SCHEDULE_CRON", "every tuesday")

	_, err := execute(t, "schedule", "--database-url=sqlite:///"+filepath.Join(dir, "jobs.db"))
	assert.ErrorContains(t, err, "invalid schedule")
}

func TestFormatError_Plain(t *testing.T) {
	assert.Equal(t, "Error: boom\n", FormatError(errors.New("boom")))
}
