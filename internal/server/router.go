package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"cmdtrack/internal/metrics"
	"cmdtrack/internal/record"
	"cmdtrack/internal/store"
)

// Router provides embeddable read-only HTTP handlers over the execution
// store. Endpoints:
//
//	GET {basePath}/executions        query: status=executing|executed, limit=N
//	GET {basePath}/executions/:uuid
//	GET {basePath}/stats
//	GET {basePath}/metrics
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	store    *store.Store
	basePath string
}

func NewRouter(st *store.Store, basePath string) *Router {
	return &Router{store: st, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/executions", r.handleList)
	group.GET("/executions/:uuid", r.handleGet)
	group.GET("/stats", r.handleStats)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Close the returned server to stop listening.
func NewServer(addr, basePath string, st *store.Store) (*http.Server, error) {
	r := NewRouter(st, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

func (r *Router) handleList(c *gin.Context) {
	status := c.Query("status")
	limitStr := c.Query("limit")

	var recs []*record.Record
	switch status {
	case "":
		recs = r.store.GetAll()
	case string(record.StatusExecuting), string(record.StatusExecuted):
		recs = r.store.GetByStatus(record.Status(status))
	default:
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "unknown status: " + status})
		return
	}

	if limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid limit: " + limitStr})
			return
		}
		if status == "" {
			recs = r.store.GetRecent(limit)
		} else if limit < len(recs) {
			recs = recs[:limit]
		}
	}

	views := make([]executionView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, newExecutionView(rec))
	}
	writeJSON(c, http.StatusOK, views)
}

func (r *Router) handleGet(c *gin.Context) {
	uuid := c.Param("uuid")
	rec := r.store.Get(uuid)
	if rec == nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "no execution with uuid " + uuid})
		return
	}
	writeJSON(c, http.StatusOK, newExecutionView(rec))
}

func (r *Router) handleStats(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.store.Stats())
}
