// Package debugserver exposes a read-only HTTP view of a VM's most
// recently captured state snapshot (/state, /stack) and of its global
// table, read directly from the VM (/globals). It subscribes to vm.Tracer, the one
// coupling point the core dispatch loop offers; the vm package never
// imports net/http.
package debugserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"stackvm/vm"
)

// Server holds the last snapshot observed on the attached VM and serves
// it over HTTP. It is itself a vm.Tracer.
type Server struct {
	machine *vm.VM

	mu   sync.RWMutex
	last vm.Snapshot
}

// New builds a Server for machine. Call SetTracer(srv) (or let the caller
// do so) to start receiving snapshots.
func New(machine *vm.VM) *Server {
	return &Server{machine: machine}
}

// OnStep implements vm.Tracer.
func (s *Server) OnStep(snap vm.Snapshot) {
	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()
}

func (s *Server) snapshot() vm.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/stack", s.handleStack).Methods(http.MethodGet)
	r.HandleFunc("/globals", s.handleGlobals).Methods(http.MethodGet)
	return r
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.snapshot())
}

func (s *Server) handleStack(w http.ResponseWriter, r *http.Request) {
	stack := s.snapshot().Stack
	out := make([]valueView, len(stack))
	for i, v := range stack {
		out[i] = viewOf(v)
	}
	writeJSON(w, out)
}

// valueView is the JSON-friendly projection of a vm.Value: its fields are
// unexported, so debugserver renders one view per Kind instead.
type valueView struct {
	Kind string      `json:"kind"`
	V    interface{} `json:"value"`
}

func viewOf(v vm.Value) valueView {
	switch v.Kind {
	case vm.KindBool:
		return valueView{Kind: v.Kind.String(), V: v.BoolVal()}
	case vm.KindInt:
		return valueView{Kind: v.Kind.String(), V: v.IntVal()}
	case vm.KindNum:
		return valueView{Kind: v.Kind.String(), V: v.NumVal()}
	case vm.KindCodePtr, vm.KindFramePtr:
		return valueView{Kind: v.Kind.String(), V: v.Addr()}
	case vm.KindObj:
		return valueView{Kind: v.Kind.String(), V: int(v.Handle())}
	default:
		return valueView{Kind: v.Kind.String()}
	}
}

type globalEntry struct {
	Index int       `json:"index"`
	Value valueView `json:"value"`
}

func (s *Server) handleGlobals(w http.ResponseWriter, r *http.Request) {
	g := s.machine.Globals()
	entries := make([]globalEntry, 0, g.Max())
	for i := 0; i < g.Max(); i++ {
		v, err := g.Get(i)
		if err != nil {
			continue
		}
		entries = append(entries, globalEntry{Index: i, Value: viewOf(v)})
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// ListenAndServe blocks serving the introspection routes on addr.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.router())
}
