package extract

import (
	"bufio"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/openmined/simlog/internal/value"
)

const (
	// KeywordsKey holds the token list of every keywords variable.
	KeywordsKey = "keywords"

	thermoHeaderToken = "Step"
	thermoKeyFormat   = "thermo_data_%d"
)

// Extractor accumulates the values of one upload into a single document.
type Extractor struct {
	doc         value.Value
	thermoCount int
}

func New() *Extractor {
	return &Extractor{doc: value.NewMap()}
}

// Doc returns the accumulated document.
func (e *Extractor) Doc() value.Value {
	return e.doc
}

// File extracts the variables fs declares from the text of one file.
func (e *Extractor) File(name, text string, fs FileSchema) error {
	if len(fs.Variables) > 0 {
		if err := e.scalars(name, text, fs.Variables); err != nil {
			return err
		}
	}
	if fs.hasThermo() {
		if err := e.thermo(name, text); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) scalars(name, text string, vars map[string]Variable) error {
	names := make([]string, 0, len(vars))
	for n, v := range vars {
		if v.Type != TypeThermoLog {
			names = append(names, n)
		}
	}
	slices.Sort(names)

	lineNo := 0
	return eachLine(text, func(line string) error {
		lineNo++
		tokens := strings.Fields(line)

		// only the first occurrence of a name on a line counts
		for _, n := range names {
			i := slices.Index(tokens, n)
			// a variable name without a following token carries no value
			if i < 0 || i+1 >= len(tokens) {
				continue
			}
			if err := e.scalar(n, vars[n].Type, tokens[i+1:]); err != nil {
				return newError(name, lineNo, "%v", err)
			}
		}
		return nil
	})
}

// scalar stores the value of variable n read from rest, the tokens after its name.
func (e *Extractor) scalar(n string, typ VarType, rest []string) error {
	switch typ {
	case TypeInt:
		if i, err := strconv.ParseInt(rest[0], 10, 64); err == nil {
			e.doc.Set(n, value.Int(i))
		}
	case TypeFloat:
		f, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return fmt.Errorf("variable %q: %q is not a float", n, rest[0])
		}
		e.doc.Set(n, value.Float(f))
	case TypeString:
		e.doc.Set(n, value.String(rest[0]))
	case TypeLongString:
		e.doc.Set(n, value.String(strings.Join(rest, " ")))
	case TypeKeywords:
		e.doc.Set(KeywordsKey, value.Strings(rest))
	}
	return nil
}

// thermo collects every contiguous numeric block that follows a header line
// containing the Step token into its own table.
func (e *Extractor) thermo(name, text string) error {
	var (
		columns []string
		data    [][]float64
		reading bool
		lineNo  int
	)

	closeTable := func() {
		table := value.NewMap()
		for i, col := range columns {
			table.Set(col, value.Floats(data[i]))
		}
		e.doc.Set(fmt.Sprintf(thermoKeyFormat, e.thermoCount), table)
		e.thermoCount++
		reading = false
	}

	err := eachLine(text, func(line string) error {
		lineNo++
		tokens := strings.Fields(line)

		if reading {
			if len(tokens) == 0 || !isNumber(tokens[0]) {
				closeTable()
			} else {
				// short rows fill the leading columns, extra values are dropped
				if len(tokens) > len(columns) {
					tokens = tokens[:len(columns)]
				}
				for i, tok := range tokens {
					f, err := strconv.ParseFloat(tok, 64)
					if err != nil {
						return newError(name, lineNo, "thermo column %q: %q is not a number", columns[i], tok)
					}
					data[i] = append(data[i], f)
				}
				return nil
			}
		}

		if containsToken(tokens, thermoHeaderToken) {
			columns = tokens
			data = make([][]float64, len(columns))
			reading = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	if reading {
		closeTable()
	}
	return nil
}

func eachLine(text string, fn func(line string) error) error {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func isNumber(tok string) bool {
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}
