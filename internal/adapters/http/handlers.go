package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"svw.info/meldsolver/internal/domain"
	"svw.info/meldsolver/internal/generator"
	"svw.info/meldsolver/internal/infrastructure/storage"
	"svw.info/meldsolver/internal/usecase"
)

const (
	defaultGenerateMelds = 4
	maxGenerateMelds     = 20
	maxBatch             = 256
)

type Handler struct {
	UC *usecase.Service
}

func New(uc *usecase.Service) *Handler { return &Handler{UC: uc} }

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/solve", h.handleSolve)
	mux.HandleFunc("/api/solve/batch", h.handleSolveBatch)
	mux.HandleFunc("/api/validate", h.handleValidate)
	mux.HandleFunc("/api/hint", h.handleHint)
	mux.HandleFunc("/api/combos", h.handleCombos)
	mux.HandleFunc("/api/stats", h.handleStats)
	mux.HandleFunc("/api/generate", h.handleGenerate)
	mux.HandleFunc("/api/save", h.handleSave)
	mux.HandleFunc("/api/load", h.handleLoad)
	mux.HandleFunc("/api/list", h.handleList)
	mux.HandleFunc("/ws/solve", h.handleSolveWS)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(v)
}

// allow sets the JSON content type and rejects other methods.
func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if r.Method != method {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// decode reads a JSON body into v. An empty body is accepted when
// optional is set.
func decode(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ---- Solve ----

type solveReq struct {
	Tiles domain.TileSet `json:"tiles"`
}

type solveResp struct {
	Outcome    domain.Outcome   `json:"outcome"`
	Melds      []domain.TileSet `json:"melds,omitempty"`
	Nodes      int              `json:"nodes,omitempty"`
	Forced     int              `json:"forced,omitempty"`
	DurationMs int64            `json:"durationMs,omitempty"`
	Cached     bool             `json:"cached,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func toSolveResp(res usecase.SolveResult) solveResp {
	return solveResp{
		Outcome:    res.Solution.Outcome,
		Melds:      res.Solution.Melds,
		Nodes:      res.Stats.Nodes,
		Forced:     res.Stats.Forced,
		DurationMs: res.Stats.Duration.Milliseconds(),
		Cached:     res.Cached,
	}
}

func (h *Handler) handleSolve(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req solveReq
	if err := decode(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, solveResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	res, err := h.UC.Solve(r.Context(), req.Tiles)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, solveResp{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toSolveResp(res))
}

type batchReq struct {
	Pools []domain.TileSet `json:"pools"`
}

type batchResp struct {
	Results []solveResp `json:"results"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) handleSolveBatch(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req batchReq
	if err := decode(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, batchResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if len(req.Pools) > maxBatch {
		writeJSON(w, http.StatusBadRequest, batchResp{Error: "too many pools, max " + strconv.Itoa(maxBatch)})
		return
	}
	res, err := h.UC.SolveBatch(r.Context(), req.Pools)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, batchResp{Error: err.Error()})
		return
	}
	out := batchResp{Results: make([]solveResp, len(res))}
	for i, sr := range res {
		out.Results[i] = toSolveResp(sr)
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- Validate ----

type validateReq struct {
	Tiles domain.TileSet   `json:"tiles"`
	Melds []domain.TileSet `json:"melds"`
}

type validateResp struct {
	domain.Validation
	Error string `json:"error,omitempty"`
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req validateReq
	if err := decode(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, validateResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	v, err := h.UC.Validate(r.Context(), req.Tiles, req.Melds)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, validateResp{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, validateResp{Validation: v})
}

// ---- Hint ----

type hintResp struct {
	Found bool        `json:"found"`
	Hint  domain.Hint `json:"hint,omitzero"`
	Error string      `json:"error,omitempty"`
}

func (h *Handler) handleHint(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req solveReq
	if err := decode(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, hintResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	hh, ok, err := h.UC.Hint(r.Context(), req.Tiles)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, hintResp{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, hintResp{Found: ok, Hint: hh})
}

// ---- Catalogue ----

type combosReq struct {
	Tiles *domain.TileSet `json:"tiles,omitempty"`
}

type combosResp struct {
	Count  int              `json:"count"`
	Combos []domain.TileSet `json:"combos"`
	Error  string           `json:"error,omitempty"`
}

func (h *Handler) handleCombos(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req combosReq
	if err := decode(r, &req, true); err != nil {
		writeJSON(w, http.StatusBadRequest, combosResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	cs := h.UC.Combos(req.Tiles)
	writeJSON(w, http.StatusOK, combosResp{Count: len(cs), Combos: cs})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.UC.CatalogueStats())
}

// ---- Generate ----

type generateReq struct {
	Seed  int64 `json:"seed,omitempty"`
	Melds int   `json:"melds,omitempty"`
}

type generateResp struct {
	Tiles domain.TileSet   `json:"tiles,omitzero"`
	Melds []domain.TileSet `json:"melds,omitempty"`
	Seed  int64            `json:"seed,omitempty"`
	Error string           `json:"error,omitempty"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req generateReq
	if err := decode(r, &req, true); err != nil {
		writeJSON(w, http.StatusBadRequest, generateResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	n := req.Melds
	if n <= 0 {
		n = defaultGenerateMelds
	}
	if n > maxGenerateMelds {
		writeJSON(w, http.StatusBadRequest, generateResp{Error: "melds must be at most " + strconv.Itoa(maxGenerateMelds)})
		return
	}
	pool, melds, err := h.UC.Generate(r.Context(), seed, n)
	if errors.Is(err, generator.ErrPoolFull) {
		writeJSON(w, http.StatusUnprocessableEntity, generateResp{Tiles: pool, Melds: melds, Seed: seed, Error: err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, generateResp{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, generateResp{Tiles: pool, Melds: melds, Seed: seed})
}

// ---- Save / Load / List ----

type saveResp struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var p domain.SavedPool
	if err := decode(r, &p, false); err != nil {
		writeJSON(w, http.StatusBadRequest, saveResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if p.ID == "" {
		p.ID = strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().UnixNano()
	}
	if err := h.UC.Save(r.Context(), &p); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrInvalidID) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, saveResp{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, saveResp{ID: p.ID})
}

type loadReq struct {
	ID string `json:"id"`
}

type loadResp struct {
	Pool  *domain.SavedPool `json:"pool,omitempty"`
	Error string            `json:"error,omitempty"`
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req loadReq
	if err := decode(r, &req, false); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, loadResp{Error: "invalid JSON or missing id"})
		return
	}
	p, err := h.UC.Load(r.Context(), req.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, loadResp{Error: err.Error()})
		return
	case errors.Is(err, storage.ErrInvalidID):
		writeJSON(w, http.StatusBadRequest, loadResp{Error: err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, loadResp{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, loadResp{Pool: p})
}

type listResp struct {
	Pools []domain.SavedPoolMeta `json:"pools"`
	Error string                 `json:"error,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	ps, err := h.UC.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, listResp{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, listResp{Pools: ps})
}
