package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tvanderstad/parasol-db/internal/catalog"
	"github.com/tvanderstad/parasol-db/internal/eventlog"
	"github.com/tvanderstad/parasol-db/internal/filter"
	"github.com/tvanderstad/parasol-db/internal/kv"
	"github.com/tvanderstad/parasol-db/internal/runtime"
	"github.com/tvanderstad/parasol-db/internal/view"
	logpkg "github.com/tvanderstad/parasol-db/pkg/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_serving"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleTables(w http.ResponseWriter, _ *http.Request) {
	tables, err := s.rt.Tables()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if tables == nil {
		tables = []catalog.Meta{}
	}
	writeJSON(w, map[string]any{"tables": tables})
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	m, err := s.rt.EnsureTable(r.PathValue("table"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(m)
}

type applyReq struct {
	Commands []kv.Command `json:"commands"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if len(req.Commands) == 0 {
		writeError(w, http.StatusBadRequest, "no commands")
		return
	}
	for _, c := range req.Commands {
		if err := c.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	seq, err := store.Apply(r.Context(), req.Commands...)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, map[string]any{"seq": seq})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	at, err := seqParam(r, "at", store.CurrentSeq())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]any{"seq": at, "state": store.State(at)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	at, err := seqParam(r, "at", store.CurrentSeq())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key := r.PathValue("key")
	v, found := store.Get(at, key)
	if !found {
		writeError(w, http.StatusNotFound, "key not found")
		return
	}
	writeJSON(w, map[string]any{"seq": at, "key": key, "value": v})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	q, err := parseRange(r, store.CurrentSeq())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs := store.Find(q.from, q.to, q.dir, q.filter, q.limit)
	out := make([]record, len(recs))
	for i, rec := range recs {
		out[i] = record{Seq: rec.Seq, Command: rec.Event}
	}
	writeJSON(w, map[string]any{"records": out})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	at, err := seqParam(r, "at", store.CurrentSeq())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := store.Verify(at); err != nil {
		s.logger.Error("index verification failed", logpkg.Table(store.Name()), logpkg.Err(err))
		writeJSON(w, map[string]any{"seq": at, "ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, map[string]any{"seq": at, "ok": true})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var names []string
	for _, n := range strings.Split(r.URL.Query().Get("tables"), ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		writeError(w, http.StatusBadRequest, "tables is required")
		return
	}
	c, err := s.rt.Merge(names...)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	q, err := parseRange(r, c.CurrentSeq())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v := view.Filtered[kv.Command](c, filter.Predicate(q.filter, eventlog.JSONCodec[kv.Command]{}.Marshal))
	out := []record{}
	for seq, cmd := range v.Scan(q.from, q.to, q.dir) {
		out = append(out, record{Seq: seq, Command: cmd})
		if q.limit > 0 && len(out) >= q.limit {
			break
		}
	}
	writeJSON(w, map[string]any{
		"vectorClock": c.VectorClock(),
		"seq":         c.CurrentSeq(),
		"records":     out,
	})
}

// store resolves the table path value, writing the error response itself
// when the table cannot be opened.
func (s *Server) store(w http.ResponseWriter, r *http.Request) (*kv.Store, bool) {
	st, err := s.rt.OpenKV(r.PathValue("table"))
	if err != nil {
		s.writeErr(w, err)
		return nil, false
	}
	return st, true
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, eventlog.ErrInvalidName):
		status = http.StatusBadRequest
	case errors.Is(err, runtime.ErrTableNotAllowed):
		status = http.StatusForbidden
	case errors.Is(err, runtime.ErrTooManyTables), errors.Is(err, catalog.ErrCodecMismatch):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", logpkg.Err(err))
	}
	writeError(w, status, err.Error())
}
