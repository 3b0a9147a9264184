package mapred

import (
	"fmt"
	"strings"
)

// ConfigError reports an invalid graph or scheduler configuration.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "mapreduce: invalid configuration: " + e.Reason
}

// JobError is returned by Run when one or more shards terminated in
// ERROR. Messages holds every failed shard's message in completion
// order.
type JobError struct {
	Messages []string
}

func (e *JobError) Error() string {
	return "mapreduce execution failed: " + strings.Join(e.Messages, ", ")
}

// IndexError is returned by ResultURL and DownloadResult when the
// shard index is out of range or the shard has not completed.
type IndexError struct {
	Index  int
	Reason string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("mapreduce: %s: %d", e.Reason, e.Index)
}

// DownloadError is returned by DownloadResult when the result fetch
// came back with a status other than 200.
type DownloadError struct {
	URL        string
	StatusCode int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("mapreduce: received %d response for %s", e.StatusCode, e.URL)
}

// InfraError reports a failure of the surrounding infrastructure, such
// as a worker pool that rejected a submission. It is fatal to the run.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("mapreduce: %s: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() error {
	return e.Err
}
