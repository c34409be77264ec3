package transport

import (
	"bufio"
	"strconv"
	"strings"
)

// sseEvent is one parsed "event:"/"data:"/"id:"/"retry:" frame. Server event
// ids are accepted in any format — there is no constraint on id shape here.
type sseEvent struct {
	Event string
	Data  string
	ID    string
	Retry int
}

// sseDecoder reads one line-delimited SSE stream and yields events separated
// by blank lines. CR/LF is normalised by bufio.Scanner's default line split,
// which already strips a trailing \r.
type sseDecoder struct {
	scanner *bufio.Scanner
}

func newSSEDecoder(r *bufio.Reader) *sseDecoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	return &sseDecoder{scanner: s}
}

// next reads lines until a blank line terminates an event, or EOF. Returns
// (event, true, nil) on a complete event, (zero, false, nil) on clean EOF,
// (zero, false, err) on a read error.
func (d *sseDecoder) next() (sseEvent, bool, error) {
	var ev sseEvent
	var dataLines []string
	sawAny := false

	for d.scanner.Scan() {
		line := d.scanner.Text()
		if line == "" {
			if sawAny {
				ev.Data = strings.Join(dataLines, "\n")
				return ev, true, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // comment line
		}
		sawAny = true
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Event = value
		case "data":
			dataLines = append(dataLines, value)
		case "id":
			ev.ID = value
		case "retry":
			if n, err := strconv.Atoi(value); err == nil {
				ev.Retry = n
			}
		}
	}
	if err := d.scanner.Err(); err != nil {
		return sseEvent{}, false, NewNetworkError("sse read: " + err.Error())
	}
	if sawAny {
		ev.Data = strings.Join(dataLines, "\n")
		return ev, true, nil
	}
	return sseEvent{}, false, nil
}
