package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/tvanderstad/parasol-db/internal/filter"
	"github.com/tvanderstad/parasol-db/internal/kv"
	"github.com/tvanderstad/parasol-db/internal/view"
	logpkg "github.com/tvanderstad/parasol-db/pkg/log"
)

// sseSink writes records as Server-Sent Events data frames.
type sseSink struct {
	w http.ResponseWriter
}

func (s sseSink) Send(rec view.Record[kv.Command]) error {
	b, err := json.Marshal(record{Seq: rec.Seq, Command: rec.Event})
	if err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// handleTail streams every command after ?from= and then follows new
// appends until the client goes away.
func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	store, ok := s.store(w, r)
	if !ok {
		return
	}
	from, err := seqParam(r, "from", store.CurrentSeq())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := filter.Compile(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if fl, ok := w.(http.Flusher); ok {
		fl.Flush()
	}
	if err := store.Tail(r.Context(), from, f, sseSink{w: w}.Send); err != nil {
		s.logger.Debug("tail ended", logpkg.Table(store.Name()), logpkg.Err(err))
	}
}
