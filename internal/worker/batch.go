package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/lawparse/internal/catalog"
	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/pipeline"
)

// ItemParser parses one catalog item into a record
type ItemParser interface {
	ParseItem(ctx context.Context, item catalog.Item) (*model.Record, error)
}

// ParseJob parses one catalog item
type ParseJob struct {
	Item   catalog.Item
	Parser ItemParser
	done   func(*ParseResult)
}

// Execute executes the parse job
func (j *ParseJob) Execute(ctx context.Context) Result {
	start := time.Now()
	rec, err := j.Parser.ParseItem(ctx, j.Item)

	result := &ParseResult{
		Item:     j.Item,
		Record:   rec,
		Duration: time.Since(start),
	}
	switch {
	case errors.Is(err, pipeline.ErrSkipped):
		result.Skipped = true
	case err != nil:
		result.Error = err
	}

	if j.done != nil {
		j.done(result)
	}
	return result
}

// ParseResult represents the result of a parse job
type ParseResult struct {
	Item     catalog.Item
	Record   *model.Record
	Skipped  bool
	Error    error
	Duration time.Duration
}

// GetError returns the error from the parse result
func (r *ParseResult) GetError() error {
	return r.Error
}

// Summary counts batch outcomes
type Summary struct {
	Total    int
	Parsed   int
	Skipped  int
	Failed   int
	Articles int
}

// Summarize counts outcomes over results
func Summarize(results []*ParseResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Error != nil:
			s.Failed++
		case r.Skipped:
			s.Skipped++
		default:
			s.Parsed++
			if r.Record != nil {
				s.Articles += r.Record.ArticleCount()
			}
		}
	}
	return s
}

// BatchProcessor parses catalog items concurrently. One failing item never
// stops the batch.
type BatchProcessor struct {
	parser      ItemParser
	concurrency int

	mu       sync.Mutex
	progress func(*ParseResult)
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(parser ItemParser, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		parser:      parser,
		concurrency: concurrency,
	}
}

// OnResult registers a callback run as each item finishes. Calls are
// serialized.
func (b *BatchProcessor) OnResult(fn func(*ParseResult)) {
	b.progress = fn
}

func (b *BatchProcessor) report(r *ParseResult) {
	if b.progress == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress(r)
}

// ProcessItems parses items concurrently and returns results in item order
func (b *BatchProcessor) ProcessItems(ctx context.Context, items []catalog.Item) []*ParseResult {
	if len(items) == 0 {
		return []*ParseResult{}
	}

	pool := NewPoolContext(ctx, b.concurrency)
	pool.Start()

	for _, item := range items {
		pool.Submit(&ParseJob{
			Item:   item,
			Parser: b.parser,
			done:   b.report,
		})
	}

	results := pool.Wait()

	parseResults := make([]*ParseResult, len(results))
	for i, result := range results {
		parseResults[i] = result.(*ParseResult)
	}
	return parseResults
}

// ReadLines reads non-empty, non-comment lines from a file, deduplicated
// and in file order
func ReadLines(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return lines, nil
}
