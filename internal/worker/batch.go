package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// positioned tags a job with its submission index
type positioned struct {
	pos int
	job Job
}

func (j positioned) Execute(ctx context.Context) Result {
	return positionedResult{pos: j.pos, Result: j.job.Execute(ctx)}
}

type positionedResult struct {
	pos int
	Result
}

// canceledResult stands in for jobs that never ran
type canceledResult struct {
	err error
}

func (r canceledResult) GetError() error { return r.err }

// RunOrdered executes jobs on a pool of the given size and returns their
// results in submission order. Jobs not started because ctx was cancelled
// report ctx.Err().
func RunOrdered(ctx context.Context, workers int, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	pool := NewPool(ctx, workers)
	defer pool.Shutdown()
	pool.Start()

	// Collect concurrently so a full result buffer never blocks submission
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range pool.Results() {
			pr := r.(positionedResult)
			results[pr.pos] = pr.Result
		}
	}()

	for i, job := range jobs {
		if !pool.Submit(positioned{pos: i, job: job}) {
			break
		}
	}
	pool.Close()
	<-done

	for i := range results {
		if results[i] == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i] = canceledResult{err: err}
		}
	}
	return results
}

// FirstError returns the first non-nil error in result order
func FirstError(results []Result) error {
	for _, r := range results {
		if r == nil {
			continue
		}
		if err := r.GetError(); err != nil {
			return err
		}
	}
	return nil
}

// ReadURLsFromFile reads URLs from a file (one per line)
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
