package mapred

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattetti/filebuffer"
	log "github.com/sirupsen/logrus"
)

// ResultStore holds shard result payloads in memory, keyed by the
// result id assigned at insertion.
type ResultStore struct {
	mu       sync.RWMutex
	payloads map[string][]byte
}

// NewResultStore creates an empty ResultStore.
func NewResultStore() *ResultStore {
	return &ResultStore{payloads: make(map[string][]byte)}
}

// Put stores payload and returns its generated result id.
func (rs *ResultStore) Put(payload []byte) string {
	id := uuid.NewString()

	rs.mu.Lock()
	rs.payloads[id] = payload
	rs.mu.Unlock()

	return id
}

func (rs *ResultStore) get(id string) ([]byte, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	payload, ok := rs.payloads[id]
	return payload, ok
}

const resultRoutePrefix = "/api/v1/mapreduce/result/"

// ResultServlet serves stored shard results over HTTP. It handles
// GET {resultRoutePrefix}{id}, requiring an "Authorization: Token ..."
// header minted by the configured auth instance.
type ResultServlet struct {
	store *ResultStore
	auth  *HMACAuth
}

// NewResultServlet creates a servlet serving results from store.
func NewResultServlet(store *ResultStore, auth *HMACAuth) *ResultServlet {
	return &ResultServlet{store: store, auth: auth}
}

func (sv *ResultServlet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || !strings.HasPrefix(r.URL.Path, resultRoutePrefix) {
		http.NotFound(w, r)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Token ")
	if _, ok := sv.auth.VerifyAuthToken(token); !ok {
		http.Error(w, "invalid auth token", http.StatusUnauthorized)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, resultRoutePrefix)
	payload, ok := sv.store.get(id)
	if !ok {
		log.Debugf("Result not found: %s", id)
		http.NotFound(w, r)
		return
	}

	// Each request gets its own buffer over the shared payload bytes;
	// ServeContent seeks the reader it is given.
	http.ServeContent(w, r, "", time.Time{}, filebuffer.New(payload))
}
