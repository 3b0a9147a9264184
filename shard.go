package mapred

import "fmt"

// ShardStatus is the lifecycle state of a single shard. A shard starts
// out PENDING, moves to RUNNING when it is admitted to the worker pool,
// and ends in either COMPLETED or ERROR. There are no other transitions.
type ShardStatus int

// Lifecycle states of a shard
const (
	ShardPending ShardStatus = iota
	ShardRunning
	ShardCompleted
	ShardError
)

func (s ShardStatus) String() string {
	switch s {
	case ShardPending:
		return "PENDING"
	case ShardRunning:
		return "RUNNING"
	case ShardCompleted:
		return "COMPLETED"
	case ShardError:
		return "ERROR"
	}
	return fmt.Sprintf("ShardStatus(%d)", int(s))
}

// ResultHost is the address of the node that holds a shard's result
// payload.
type ResultHost struct {
	IP   string
	Port int
}

func (h ResultHost) String() string {
	return fmt.Sprintf("%s:%d", h.IP, h.Port)
}

// ShardResult describes the artifact a completed shard produced: an
// opaque content-addressed result id and the host it can be fetched
// from. A successful shard may produce no result at all, in which case
// its result slot stays nil.
type ShardResult struct {
	ResultID string
	Host     ResultHost
}

// Task is the execution body of a shard. The scheduler treats it as an
// opaque unit: Execute either returns a result descriptor (possibly
// nil) or fails. The scheduler handle may be used to forward key/value
// outputs via SendResult while the task is running.
type Task interface {
	Execute(shard *Shard, sched *Scheduler) (*ShardResult, error)
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc func(shard *Shard, sched *Scheduler) (*ShardResult, error)

func (f TaskFunc) Execute(shard *Shard, sched *Scheduler) (*ShardResult, error) {
	return f(shard, sched)
}

// Shard is a single unit of work in a job. Dependencies lists the
// indices of the shards that must complete before this one may start.
type Shard struct {
	Dependencies []int
	Task         Task
}
