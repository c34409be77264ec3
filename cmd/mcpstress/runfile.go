package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// runFile is a minimally-parsed NDJSON run file: the meta line, the summary
// line, and the count of request lines in between. chart/compare/aggregate
// only need the meta/summary objects per spec.md §2 ("the core exposes the
// data they consume but their internals are mechanical") — the full request
// stream is not re-parsed into memory here.
type runFile struct {
	Meta        map[string]interface{}
	Summary     map[string]interface{}
	RequestRows int
}

func readRunFile(path string) (*runFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening run file: %w", err)
	}
	defer f.Close()

	rf := &runFile{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	sawLine := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		sawLine = true
		var row map[string]interface{}
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("parsing run file line: %w", err)
		}
		switch row["type"] {
		case "meta":
			rf.Meta = row
		case "summary":
			rf.Summary = row
		default:
			rf.RequestRows++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading run file: %w", err)
	}
	if !sawLine {
		return nil, fmt.Errorf("empty run file: %s", path)
	}
	if rf.Meta == nil {
		return nil, fmt.Errorf("run file %s missing meta line", path)
	}
	return rf, nil
}

func numericField(m map[string]interface{}, key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	f, _ := v.(float64)
	return f
}
