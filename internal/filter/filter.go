package filter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/tvanderstad/parasol-db/internal/view"
)

// Filter wraps a compiled CEL program evaluated against stored records. The
// zero Filter, and one compiled from an empty expression, matches everything.
type Filter struct {
	prog    cel.Program
	expr    string
	enabled bool
}

// Compile parses and type-checks expr. The expression sees:
//
//	sequence  int     record seq
//	size      int     payload length in bytes
//	text      string  payload as a string
//	json      dyn     payload parsed as JSON (null if it is not JSON)
//	now_ms    int     evaluation time in unix milliseconds
func Compile(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("sequence", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		cel.Variable("json", cel.DynType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, fmt.Errorf("parse filter: %w", iss.Err())
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, fmt.Errorf("check filter: %w", iss2.Err())
	}
	if out := checked.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return Filter{}, fmt.Errorf("filter must evaluate to bool, got %s", out)
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, expr: expr, enabled: true}, nil
}

// Enabled reports whether the filter can reject anything.
func (f Filter) Enabled() bool { return f.enabled }

func (f Filter) String() string { return f.expr }

// Match evaluates the filter against one record. Evaluation errors and
// non-bool results count as no match.
func (f Filter) Match(seq view.Seq, payload []byte) bool {
	if !f.enabled {
		return true
	}
	var jsonObj any
	_ = json.Unmarshal(payload, &jsonObj)
	out, _, err := f.prog.Eval(map[string]any{
		"sequence": int64(seq),
		"size":     int64(len(payload)),
		"text":     string(payload),
		"json":     jsonObj,
		"now_ms":   time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// Predicate adapts f to typed events. encode produces the bytes the filter
// sees, normally the log's codec Marshal. Events that fail to encode never
// match.
func Predicate[E any](f Filter, encode func(E) ([]byte, error)) view.Predicate[E] {
	if !f.enabled {
		return nil
	}
	return func(seq view.Seq, event E) bool {
		payload, err := encode(event)
		if err != nil {
			return false
		}
		return f.Match(seq, payload)
	}
}
