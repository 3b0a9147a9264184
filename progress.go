package mapred

import (
	"sync"

	pb "gopkg.in/cheggaaa/pb.v1"
)

// JobStatus is a snapshot of job progress. Snapshots observed by a job
// are monotone in TasksCompleted across updates.
type JobStatus struct {
	TasksTotal     int
	TasksCompleted int
	TasksRunning   int
}

// JobSpec is the job-side contract of the scheduler. UpdateProgress is
// called once per scheduler loop iteration, serialised by the
// scheduler. SendResult may be called concurrently from worker
// goroutines.
type JobSpec interface {
	UpdateProgress(status JobStatus)
	SendResult(key, value string) error
}

// ConsoleJob renders job progress as a terminal progress bar and
// collects forwarded key/value outputs in memory.
type ConsoleJob struct {
	mu      sync.Mutex
	bar     *pb.ProgressBar
	results map[string][]string
}

// NewConsoleJob creates an empty ConsoleJob. The progress bar starts
// with the first UpdateProgress call.
func NewConsoleJob() *ConsoleJob {
	return &ConsoleJob{results: make(map[string][]string)}
}

// UpdateProgress advances the progress bar to the reported completion
// count, finishing it when every task has terminated.
func (j *ConsoleJob) UpdateProgress(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.bar == nil {
		j.bar = pb.New(status.TasksTotal).Prefix("Shards").Start()
	}

	j.bar.Set(status.TasksCompleted)
	if status.TasksCompleted == status.TasksTotal {
		j.bar.Finish()
	}
}

// SendResult records a key/value output of the job.
func (j *ConsoleJob) SendResult(key, value string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.results[key] = append(j.results[key], value)
	return nil
}

// Results returns a copy of the outputs collected so far, grouped by
// key in arrival order.
func (j *ConsoleJob) Results() map[string][]string {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make(map[string][]string, len(j.results))
	for key, values := range j.results {
		out[key] = append([]string(nil), values...)
	}
	return out
}
