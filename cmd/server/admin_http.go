package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"blobcraft.ai/internal/sim/inproc"
	"blobcraft.ai/internal/sim/world"
	"blobcraft.ai/internal/sim/world/feature/chem"
	"blobcraft.ai/internal/sim/world/feature/destruction"
)

// adminAPI exposes the world request API over loopback-only HTTP.
type adminAPI struct {
	w     *world.World
	round *inproc.Round
}

func (a adminAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/v1/state", a.local(a.handleState))
	mux.HandleFunc("/admin/v1/metrics", a.local(a.handleMetrics))
	mux.HandleFunc("/admin/v1/reset", a.local(post(a.handleReset)))
	mux.HandleFunc("/admin/v1/stage", a.local(post(a.handleStage)))
	mux.HandleFunc("/admin/v1/spawn", a.local(post(a.handleSpawn)))
	mux.HandleFunc("/admin/v1/attach", a.local(post(a.handleAttach)))
	mux.HandleFunc("/admin/v1/chem", a.local(post(a.handleChem)))
	mux.HandleFunc("/admin/v1/transform", a.local(post(a.handleTransform)))
	mux.HandleFunc("/admin/v1/produce", a.local(post(a.handleProduce)))
	mux.HandleFunc("/admin/v1/damage", a.local(post(a.handleDamage)))
}

func (a adminAPI) local(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func post(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(rw, r)
	}
}

func requestCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeErr(rw http.ResponseWriter, status int, err error) {
	writeJSON(rw, status, map[string]any{"ok": false, "error": err.Error()})
}

func decodeBody(rw http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 64*1024))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeErr(rw, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (a adminAPI) handleState(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestCtx(r)
	defer cancel()
	st, err := a.w.RequestState(ctx)
	if err != nil {
		writeErr(rw, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(rw, http.StatusOK, struct {
		world.StateView
		Stage string `json:"stage"`
	}{StateView: st, Stage: a.round.CurrentStage().String()})
}

func (a adminAPI) handleMetrics(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, a.w.Metrics())
}

func (a adminAPI) handleReset(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestCtx(r)
	defer cancel()
	res, err := a.w.RequestReset(ctx)
	if err != nil {
		writeErr(rw, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": res.Tick, "destroyed": res.Destroyed})
}

func (a adminAPI) handleStage(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Stage string `json:"stage"`
	}
	if !decodeBody(rw, r, &body) {
		return
	}
	s, ok := destruction.ParseStage(body.Stage)
	if !ok {
		http.Error(rw, "unknown stage", http.StatusBadRequest)
		return
	}
	a.round.SetStage(s)
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "stage": s.String()})
}

func (a adminAPI) handleSpawn(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		X      int    `json:"x"`
		Y      int    `json:"y"`
		Region string `json:"region"`
	}
	if !decodeBody(rw, r, &body) {
		return
	}
	ctx, cancel := requestCtx(r)
	defer cancel()
	id, err := a.w.RequestSpawn(ctx, world.Vec2i{X: body.X, Y: body.Y}, body.Region)
	if err != nil {
		writeErr(rw, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": id != 0, "organism": id})
}

func (a adminAPI) handleAttach(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Organism world.EntityID `json:"organism"`
		User     string         `json:"user"`
	}
	if !decodeBody(rw, r, &body) {
		return
	}
	if strings.TrimSpace(body.User) == "" {
		http.Error(rw, "missing user", http.StatusBadRequest)
		return
	}
	ctx, cancel := requestCtx(r)
	defer cancel()
	ok, err := a.w.RequestPlayerAttach(ctx, body.Organism, world.UserID(body.User))
	if err != nil {
		writeErr(rw, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": ok})
}

func (a adminAPI) handleChem(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Organism world.EntityID `json:"organism"`
		Chem     string         `json:"chem"`
	}
	if !decodeBody(rw, r, &body) {
		return
	}
	next, ok := chem.Parse(body.Chem)
	if !ok {
		http.Error(rw, "unknown chem", http.StatusBadRequest)
		return
	}
	ctx, cancel := requestCtx(r)
	defer cancel()
	changed, err := a.w.RequestChangeChem(ctx, body.Organism, next)
	if err != nil {
		writeErr(rw, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": changed})
}

func (a adminAPI) handleTransform(rw http.ResponseWriter, r *http.Request) {
	var body world.TransformRequest
	if !decodeBody(rw, r, &body) {
		return
	}
	ctx, cancel := requestCtx(r)
	defer cancel()
	id, err := a.w.RequestTransformTile(ctx, body)
	if err != nil {
		writeErr(rw, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": id != 0, "tile": id})
}

func (a adminAPI) handleProduce(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Organism world.EntityID `json:"organism"`
		Factory  world.EntityID `json:"factory"`
		Kind     string         `json:"kind"`
	}
	if !decodeBody(rw, r, &body) {
		return
	}
	ctx, cancel := requestCtx(r)
	defer cancel()
	id, err := a.w.RequestProduce(ctx, body.Organism, body.Factory, body.Kind)
	if err != nil {
		writeErr(rw, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": id != 0, "entity": id})
}

func (a adminAPI) handleDamage(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Organism world.EntityID `json:"organism"`
		Total    float64        `json:"total"`
	}
	if !decodeBody(rw, r, &body) {
		return
	}
	if body.Total < 0 {
		http.Error(rw, "negative damage", http.StatusBadRequest)
		return
	}
	ctx, cancel := requestCtx(r)
	defer cancel()
	applied, err := a.w.RequestDamage(ctx, body.Organism, body.Total)
	if err != nil {
		writeErr(rw, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": applied})
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
