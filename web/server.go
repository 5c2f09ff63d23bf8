package web

import (
	"io"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mogaika/optchar/character"
	"github.com/mogaika/optchar/optchar"
	"github.com/mogaika/optchar/status"
)

// State is what the inspector serves: the loaded characters, their
// classification and the report of the last run.
type State struct {
	Source      string
	Collection  *character.Collection
	Annotations *optchar.Annotations
	Report      []string
	// Export writes the current model, nil when there is nothing to download.
	Export func(w io.Writer) error
	// Optimize runs the optimizer over Collection, nil once it has run.
	Optimize func() (*optchar.Result, error)
	Status   *status.Hub

	lock sync.Mutex
}

var ServerState *State

// locked serializes the handlers touching the collection.
func locked(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ServerState.lock.Lock()
		defer ServerState.lock.Unlock()
		h(w, r)
	}
}

func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/characters", locked(HandlerAjaxCharacters))
	r.HandleFunc("/json/characters/{name}", locked(HandlerAjaxCharacter))
	r.HandleFunc("/json/characters/{name}/{joint}", locked(HandlerAjaxJoint))
	r.HandleFunc("/yaml/characters/{name}", locked(HandlerYamlCharacter))
	r.HandleFunc("/text/characters/{name}", locked(HandlerTextCharacter))
	r.HandleFunc("/json/report", locked(HandlerAjaxReport))
	r.HandleFunc("/dump/model", locked(HandlerDumpModel))
	r.HandleFunc("/action/optimize", locked(HandlerActionOptimize)).Methods(http.MethodPost)
	r.HandleFunc("/ws/status", HandlerWsStatus)
	return r
}

func StartServer(addr string, st *State) error {
	ServerState = st

	r := NewRouter()
	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
