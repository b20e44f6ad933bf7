package extract

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/openmined/simlog/internal/value"
)

const (
	itemPrefix   = "ITEM:"
	itemTimestep = "TIMESTEP"
)

type trajState int

const (
	seekItem trajState = iota
	readTimestepKey
	readColumnRows
	readSingleValue
)

func (s trajState) String() string {
	switch s {
	case readTimestepKey:
		return "timestep"
	case readColumnRows:
		return "rows"
	case readSingleValue:
		return "value"
	default:
		return "item"
	}
}

type trajectoryParser struct {
	name  string
	state trajState
	doc   value.Value

	step    value.Value
	item    string
	columns []string
	rows    value.Value
	rowIdx  int
}

// Trajectory parses a dump file and stores it under extracted[name]. The result maps
// each timestep to its items; column items map row indices to column values.
func (e *Extractor) Trajectory(name, text string) error {
	doc, err := ParseTrajectory(name, text)
	if err != nil {
		return err
	}
	e.doc.Set(name, doc)
	return nil
}

// ParseTrajectory parses the ITEM grammar of a dump file.
func ParseTrajectory(name, text string) (value.Value, error) {
	p := &trajectoryParser{name: name, doc: value.NewMap()}

	lineNo := 0
	err := eachLine(text, func(line string) error {
		lineNo++
		return p.feed(lineNo, strings.TrimSpace(line))
	})
	if err != nil {
		return value.Value{}, err
	}

	if p.state == readTimestepKey || p.state == readSingleValue {
		return value.Value{}, newError(name, lineNo, "unexpected end of file, %s %q has no value", p.state, p.item)
	}
	return p.doc, nil
}

func (p *trajectoryParser) feed(lineNo int, line string) error {
	if rest, ok := strings.CutPrefix(line, itemPrefix); ok {
		return p.openItem(lineNo, rest)
	}
	if line == "" {
		return nil
	}

	switch p.state {
	case seekItem:
		return newError(p.name, lineNo, "data outside of an ITEM section")

	case readTimestepKey:
		key := strings.Fields(line)[0]
		p.step = value.NewMap()
		p.doc.Set(key, p.step)
		p.state = seekItem

	case readSingleValue:
		tokens := strings.Fields(line)
		if len(tokens) != 1 {
			return newError(p.name, lineNo, "item %q expects a single value, got %d", p.item, len(tokens))
		}
		f, err := strconv.ParseFloat(tokens[0], 64)
		if err != nil {
			return newError(p.name, lineNo, "item %q: %q is not a number", p.item, tokens[0])
		}
		p.step.Set(p.item, value.Float(f))
		p.state = seekItem

	case readColumnRows:
		tokens := strings.Fields(line)
		if len(tokens) > len(p.columns) {
			return newError(p.name, lineNo, "item %q row has %d values for %d columns", p.item, len(tokens), len(p.columns))
		}
		row := value.NewMap()
		for i, tok := range tokens {
			f, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return newError(p.name, lineNo, "item %q column %q: %q is not a number", p.item, p.columns[i], tok)
			}
			row.Set(p.columns[i], value.Float(f))
		}
		p.rows.Set(strconv.Itoa(p.rowIdx), row)
		p.rowIdx++
	}
	return nil
}

func (p *trajectoryParser) openItem(lineNo int, rest string) error {
	if p.state == readTimestepKey || p.state == readSingleValue {
		return newError(p.name, lineNo, "%s %q has no value", p.state, p.item)
	}

	name, columns := splitItem(rest)
	switch {
	case name == "":
		return newError(p.name, lineNo, "ITEM without a name")
	case name == itemTimestep:
		p.item = name
		p.state = readTimestepKey
		return nil
	case p.step.IsNull():
		return newError(p.name, lineNo, "item %q before the first %s", name, itemTimestep)
	}

	p.item = name
	if len(columns) == 0 {
		p.state = readSingleValue
		return nil
	}

	p.columns = columns
	p.rows = value.NewMap()
	p.rowIdx = 0
	p.step.Set(name, p.rows)
	p.state = readColumnRows
	return nil
}

// splitItem cuts an ITEM header into its upper case name and trailing column names,
// "BOX BOUNDS pp pp pp" gives "BOX BOUNDS" and [pp pp pp].
func splitItem(rest string) (string, []string) {
	end := strings.IndexFunc(rest, unicode.IsLower)
	if end < 0 {
		return strings.TrimSpace(rest), nil
	}
	return strings.TrimSpace(rest[:end]), strings.Fields(rest[end:])
}
