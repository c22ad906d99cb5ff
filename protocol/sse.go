package protocol

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// SSERecord is one parsed Server-Sent Events record (the unit between blank
// lines in an SSE stream).
type SSERecord struct {
	ID    string
	Event string
	Data  string
	Retry int // milliseconds; 0 if absent
}

// ParseSSE splits a complete SSE byte stream into records. It tolerates
// trailing data with no final blank line (the last record is still
// returned) and ignores comment lines (those starting with ':').
func ParseSSE(data []byte) []SSERecord {
	var records []SSERecord
	cur := SSERecord{}
	var dataLines []string

	// flush emits the accumulated record only if at least one data: line was
	// seen — a record with only event:/id:/retry: fields and no data carries
	// nothing the protocol engine can act on and is dropped.
	flush := func() {
		if len(dataLines) == 0 {
			cur = SSERecord{}
			return
		}
		cur.Data = strings.Join(dataLines, "\n")
		records = append(records, cur)
		cur = SSERecord{}
		dataLines = dataLines[:0]
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value := splitField(line)
		switch field {
		case "event":
			cur.Event = value
		case "data":
			dataLines = append(dataLines, value)
		case "id":
			if !strings.Contains(value, "\x00") {
				cur.ID = value
			}
		case "retry":
			if n, err := strconv.Atoi(value); err == nil {
				cur.Retry = n
			}
		default:
			// unknown field name: ignored per the SSE spec
		}
	}
	flush()
	return records
}

// splitField splits "field: value" or "field:value" or a bare "field" line
// per the SSE spec's leading-single-space trimming rule.
func splitField(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx == -1 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	value = strings.TrimPrefix(value, " ")
	return field, value
}
