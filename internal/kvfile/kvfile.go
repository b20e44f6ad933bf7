// Package kvfile reads and writes the line oriented `key : value` text format shared by
// revision records and the credentials file.
package kvfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

const Separator = " : "

// Pair is one line of a kvfile. Order is preserved on write.
type Pair struct {
	Key   string
	Value string
}

// Parse reads every non-blank line of r. Lines are `key : value`; the legacy
// whitespace separated `key value` form is accepted as well.
func Parse(r io.Reader) ([]Pair, error) {
	var pairs []Pair

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, Separator)
		if !ok {
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: malformed entry %q", lineNo, line)
			}
			key, value = fields[0], fields[1]
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNo)
		}
		pairs = append(pairs, Pair{Key: key, Value: value})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return pairs, nil
}

// Format renders pairs in order, one per line.
func Format(pairs []Pair) []byte {
	var buf bytes.Buffer
	for _, p := range pairs {
		buf.WriteString(p.Key)
		buf.WriteString(Separator)
		buf.WriteString(p.Value)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Lookup returns the value of the last pair with the given key.
func Lookup(pairs []Pair, key string) (string, bool) {
	for i := len(pairs) - 1; i >= 0; i-- {
		if pairs[i].Key == key {
			return pairs[i].Value, true
		}
	}
	return "", false
}
