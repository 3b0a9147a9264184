package mapred

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

// resultURL returns the canonical location of a shard result on the
// node that produced it.
func resultURL(result *ShardResult) string {
	return fmt.Sprintf("http://%s/api/v1/mapreduce/result/%s", result.Host, result.ResultID)
}

// cachePath returns the local path a downloaded result is cached at.
// The path is deterministic from the result id.
func cachePath(cachedir, resultID string) string {
	return filepath.Join(cachedir, "mr-result-"+resultID)
}

// completedResult returns the result slot of shard i, failing unless
// the shard is COMPLETED. A nil slot means the shard produced no
// artifact. Callers hold s.mu.
func (s *Scheduler) completedResult(i int) (*ShardResult, error) {
	if i < 0 || i >= s.graph.Len() {
		return nil, &IndexError{Index: i, Reason: "invalid task index"}
	}
	if s.status[i] != ShardCompleted {
		return nil, &IndexError{Index: i, Reason: "task is not completed"}
	}
	return s.results[i], nil
}

// ResultURL returns the URL of shard i's result. ok is false when the
// shard completed without producing an artifact. It fails with an
// IndexError when i is out of range or the shard is not COMPLETED.
// ResultURL is intended for callers inspecting a finished run; it must
// not be called from within a task.
func (s *Scheduler) ResultURL(i int) (url string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.completedResult(i)
	if err != nil {
		return "", false, err
	}
	if result == nil {
		return "", false, nil
	}

	return resultURL(result), true, nil
}

// DownloadResult fetches shard i's result to the cache directory and
// returns the local path. ok is false when the shard completed without
// producing an artifact. The fetch authenticates with a token minted
// for the scheduler's session and requires a 200 response; any other
// status fails with a DownloadError. Like ResultURL, it must not be
// called from within a task.
func (s *Scheduler) DownloadResult(i int) (path string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.completedResult(i)
	if err != nil {
		return "", false, err
	}
	if result == nil {
		return "", false, nil
	}

	path = cachePath(s.config.CacheDir, result.ResultID)

	if _, hit := s.downloads.Get(result.ResultID); hit {
		if _, err := os.Stat(path); err == nil {
			log.Debugf("Result %s already cached at %s", result.ResultID, path)
			return path, true, nil
		}
		s.downloads.Remove(result.ResultID)
	}

	token, err := s.auth.EncodeAuthToken(s.session)
	if err != nil {
		return "", false, &InfraError{Op: "encoding auth token", Err: err}
	}

	if err := s.fetchResult(resultURL(result), token, path); err != nil {
		return "", false, err
	}

	s.downloads.Add(result.ResultID, path)
	return path, true, nil
}

// fetchResult streams url to path. The body is written to a .tmp
// sibling and renamed into place so a failed fetch never leaves a
// partial file at the cache path.
func (s *Scheduler) fetchResult(url, token, path string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return &InfraError{Op: "building result request", Err: err}
	}
	req.Header.Set("Authorization", "Token "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return &InfraError{Op: "fetching result", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &InfraError{Op: "creating cache file", Err: err}
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		return &InfraError{Op: "writing cache file", Err: err}
	}

	log.Debugf("Downloaded %s to %s (%s)", url, path, humanize.Bytes(uint64(n)))
	return nil
}
