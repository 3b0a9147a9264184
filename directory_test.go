package mapred

import (
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analytiq/mapred/internal/pkg/workpool"
)

func hostFromURL(t *testing.T, rawurl string) ResultHost {
	t.Helper()

	u, err := url.Parse(rawurl)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return ResultHost{IP: u.Hostname(), Port: port}
}

func TestResultURLShape(t *testing.T) {
	url := resultURL(&ShardResult{
		ResultID: "deadbeef",
		Host:     ResultHost{IP: "192.168.0.7", Port: 9175},
	})
	assert.Equal(t, "http://192.168.0.7:9175/api/v1/mapreduce/result/deadbeef", url)
}

func TestCachePathDeterministic(t *testing.T) {
	path := cachePath(filepath.Join("some", "dir"), "deadbeef")
	assert.Equal(t, filepath.Join("some", "dir", "mr-result-deadbeef"), path)
	assert.Equal(t, path, cachePath(filepath.Join("some", "dir"), "deadbeef"))
}

func resultShard(id string, host ResultHost) *Shard {
	return &Shard{Task: TaskFunc(func(shard *Shard, sched *Scheduler) (*ShardResult, error) {
		return &ShardResult{ResultID: id, Host: host}, nil
	})}
}

func TestDownloadResult(t *testing.T) {
	store := NewResultStore()
	auth := NewHMACAuth([]byte("test-secret"))
	srv := httptest.NewServer(NewResultServlet(store, auth))
	defer srv.Close()

	payload := []byte("per-key word counts")
	id := store.Put(payload)

	cachedir := t.TempDir()
	job := newCollectorJob()

	graph, err := NewShardGraph([]*Shard{resultShard(id, hostFromURL(t, srv.URL))})
	require.NoError(t, err)

	pool := workpool.NewFixedPool(4)
	defer pool.Close()

	sched, err := NewScheduler(
		Session{UserID: "test", Namespace: "jobs"},
		job,
		graph,
		pool,
		auth,
		WithCacheDir(cachedir),
		WithMaxConcurrentTasks(4),
	)
	require.NoError(t, err)
	require.NoError(t, sched.Run())

	path, ok, err := sched.DownloadResult(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(cachedir, "mr-result-"+id), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	// No partial .tmp sibling is left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	// A second download resolves to the same path.
	again, ok, err := sched.DownloadResult(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path, again)
}

func TestDownloadResultBadToken(t *testing.T) {
	store := NewResultStore()
	srv := httptest.NewServer(NewResultServlet(store, NewHMACAuth([]byte("server-secret"))))
	defer srv.Close()

	id := store.Put([]byte("payload"))

	graph, err := NewShardGraph([]*Shard{resultShard(id, hostFromURL(t, srv.URL))})
	require.NoError(t, err)

	pool := workpool.NewFixedPool(4)
	defer pool.Close()

	// The scheduler signs with a different secret than the serving
	// node, so the fetch comes back 401.
	sched, err := NewScheduler(
		Session{UserID: "test", Namespace: "jobs"},
		newCollectorJob(),
		graph,
		pool,
		NewHMACAuth([]byte("client-secret")),
		WithCacheDir(t.TempDir()),
		WithMaxConcurrentTasks(4),
	)
	require.NoError(t, err)
	require.NoError(t, sched.Run())

	_, _, err = sched.DownloadResult(0)

	var downloadErr *DownloadError
	require.ErrorAs(t, err, &downloadErr)
	assert.Equal(t, 401, downloadErr.StatusCode)
}

func TestDownloadResultUnknownID(t *testing.T) {
	auth := NewHMACAuth([]byte("test-secret"))
	srv := httptest.NewServer(NewResultServlet(NewResultStore(), auth))
	defer srv.Close()

	graph, err := NewShardGraph([]*Shard{resultShard("no-such-result", hostFromURL(t, srv.URL))})
	require.NoError(t, err)

	pool := workpool.NewFixedPool(4)
	defer pool.Close()

	sched, err := NewScheduler(
		Session{UserID: "test", Namespace: "jobs"},
		newCollectorJob(),
		graph,
		pool,
		auth,
		WithCacheDir(t.TempDir()),
		WithMaxConcurrentTasks(4),
	)
	require.NoError(t, err)
	require.NoError(t, sched.Run())

	_, _, err = sched.DownloadResult(0)

	var downloadErr *DownloadError
	require.ErrorAs(t, err, &downloadErr)
	assert.Equal(t, 404, downloadErr.StatusCode)
}
