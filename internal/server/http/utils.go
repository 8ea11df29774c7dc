package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tvanderstad/parasol-db/internal/filter"
	"github.com/tvanderstad/parasol-db/internal/kv"
	"github.com/tvanderstad/parasol-db/internal/view"
)

// record is the wire shape of one stored command.
type record struct {
	Seq view.Seq `json:"seq"`
	kv.Command
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// seqParam parses query parameter name as a seq, returning def when absent.
func seqParam(r *http.Request, name string, def view.Seq) (view.Seq, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, v)
	}
	return n, nil
}

type rangeQuery struct {
	from, to view.Seq
	dir      view.Direction
	filter   filter.Filter
	limit    int
}

// parseRange reads from, to, reverse, filter and limit. to defaults to
// current.
func parseRange(r *http.Request, current view.Seq) (rangeQuery, error) {
	var q rangeQuery
	var err error
	if q.from, err = seqParam(r, "from", 0); err != nil {
		return q, err
	}
	if q.to, err = seqParam(r, "to", current); err != nil {
		return q, err
	}
	q.dir = view.Forward
	if v := r.URL.Query().Get("reverse"); v != "" {
		rev, err := strconv.ParseBool(v)
		if err != nil {
			return q, fmt.Errorf("invalid reverse: %q", v)
		}
		if rev {
			q.dir = view.Backward
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if q.limit, err = strconv.Atoi(v); err != nil {
			return q, fmt.Errorf("invalid limit: %q", v)
		}
	}
	if q.filter, err = filter.Compile(r.URL.Query().Get("filter")); err != nil {
		return q, err
	}
	return q, nil
}
