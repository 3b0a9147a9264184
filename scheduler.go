package mapred

import (
	"fmt"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"

	"github.com/analytiq/mapred/internal/pkg/workpool"
)

// Scheduler drives a shard DAG to completion on a bounded worker pool.
//
// Run admits shards in index order as their dependencies complete,
// keeping at most MaxConcurrentTasks in flight, and reports a progress
// snapshot to the job on every loop iteration. Shard failures are not
// retried; a failure surfaces as a JobError once every in-flight and
// still-admissible shard has terminated. Independent branches keep
// running, while shards depending on a failed shard are never admitted.
// After a successful run, ResultURL and DownloadResult resolve
// per-shard result locations.
//
// All mutable state (statuses, result slots, counters, errors) is
// guarded by one mutex with one condition variable. Workers signal the
// condition variable after every terminal transition; the main loop is
// the only waiter.
type Scheduler struct {
	session Session
	job     JobSpec
	graph   *ShardGraph
	pool    workpool.Pool
	auth    Auth
	config  *config
	client  *http.Client

	mu   sync.Mutex
	cond *sync.Cond

	status  []ShardStatus
	results []*ShardResult

	numRunning   int
	numCompleted int
	errored      bool
	errors       []string

	downloads *lru.Cache
}

// NewScheduler creates a scheduler for the given graph. The job
// receives progress snapshots and forwarded key/value outputs; the
// auth handle mints the token used when downloading results on behalf
// of session.
func NewScheduler(
	session Session,
	job JobSpec,
	graph *ShardGraph,
	pool workpool.Pool,
	auth Auth,
	options ...Option,
) (*Scheduler, error) {
	c := newConfig()
	for _, f := range options {
		f(c)
	}

	if c.MaxConcurrentTasks < 1 {
		return nil, &ConfigError{
			Reason: fmt.Sprintf("maxConcurrentTasks must be positive, got %d", c.MaxConcurrentTasks),
		}
	}

	downloads, err := lru.New(c.ResultCacheSize)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	s := &Scheduler{
		session:   session,
		job:       job,
		graph:     graph,
		pool:      pool,
		auth:      auth,
		config:    c,
		client:    &http.Client{Timeout: c.DownloadTimeout},
		status:    make([]ShardStatus, graph.Len()),
		results:   make([]*ShardResult, graph.Len()),
		downloads: downloads,
	}
	s.cond = sync.NewCond(&s.mu)

	log.Debugf("Loaded scheduler config: %#v", c)

	return s, nil
}

// Run blocks until every shard reached a terminal status or the job
// failed. It returns nil when all shards completed, a JobError when any
// shard terminated in ERROR, and an InfraError when the worker pool
// rejected a submission. Run waits for all in-flight shards before
// reporting a failure; it cannot be cancelled externally.
func (s *Scheduler) Run() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		log.Debugf(
			"Running job; progress=%d/%d (%d running)",
			s.numCompleted,
			s.graph.Len(),
			s.numRunning,
		)

		s.job.UpdateProgress(JobStatus{
			TasksTotal:     s.graph.Len(),
			TasksCompleted: s.numCompleted,
			TasksRunning:   s.numRunning,
		})

		if s.numCompleted == s.graph.Len() && !s.errored {
			return nil
		}

		started, err := s.startShards()
		if err != nil {
			for s.numRunning > 0 {
				s.cond.Wait()
			}
			return err
		}
		if started > 0 {
			continue
		}

		// Quiescent failure: nothing running, nothing admissible. The
		// snapshot above already carried the final counts.
		if s.errored && s.numRunning == 0 {
			return &JobError{Messages: append([]string(nil), s.errors...)}
		}

		s.cond.Wait()
	}
}

// startShards scans the graph in index order and admits every ready
// shard until the concurrency cap is reached. The index order is a
// deterministic tie-break between simultaneously ready shards. Callers
// hold s.mu.
func (s *Scheduler) startShards() (int, error) {
	if s.numRunning >= s.config.MaxConcurrentTasks {
		return 0, nil
	}

	if s.numCompleted+s.numRunning >= s.graph.Len() {
		return 0, nil
	}

	started := 0
	for i := 0; i < s.graph.Len(); i++ {
		if s.status[i] != ShardPending {
			continue
		}

		if !s.ready(i) {
			continue
		}

		s.numRunning++
		started++
		s.status[i] = ShardRunning
		shard := s.graph.Shard(i)

		idx := i
		if err := s.pool.Submit(func() { s.runShard(idx, shard) }); err != nil {
			s.numRunning--
			started--
			s.status[idx] = ShardPending
			return started, &InfraError{Op: fmt.Sprintf("submitting shard %d", idx), Err: err}
		}

		if s.numRunning >= s.config.MaxConcurrentTasks {
			break
		}
	}

	return started, nil
}

// ready reports whether every dependency of shard i has completed. A
// shard with a failed dependency is never ready. Callers hold s.mu.
func (s *Scheduler) ready(i int) bool {
	for _, dep := range s.graph.Dependencies(i) {
		if s.status[dep] != ShardCompleted {
			return false
		}
	}
	return true
}

// runShard executes one dispatched shard on a pool worker and records
// its terminal status. The result slot is written exactly once, under
// the same critical section as the status transition and the counter
// updates.
func (s *Scheduler) runShard(i int, shard *Shard) {
	result, err := shard.Task.Execute(shard, s)
	if err != nil {
		log.Errorf("Shard %d failed: %s", i, err)
	}

	s.mu.Lock()
	s.results[i] = result
	if err != nil {
		s.status[i] = ShardError
		s.errored = true
		s.errors = append(s.errors, err.Error())
	} else {
		s.status[i] = ShardCompleted
	}
	s.numRunning--
	s.numCompleted++
	s.mu.Unlock()

	s.cond.Broadcast()
}

// SendResult forwards a key/value output to the job. It is safe to
// call concurrently from running tasks.
func (s *Scheduler) SendResult(key, value string) error {
	return s.job.SendResult(key, value)
}

// Status returns the current status of shard i.
func (s *Scheduler) Status(i int) (ShardStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= s.graph.Len() {
		return 0, &IndexError{Index: i, Reason: "invalid task index"}
	}
	return s.status[i], nil
}
