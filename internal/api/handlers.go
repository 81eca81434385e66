package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/pipeline"
	"github.com/vietddude/packup/internal/service/chat"
	"github.com/vietddude/packup/internal/service/itinerary"
)

const anonymousUser = "anon"

func (s *Server) handleItinerary(w http.ResponseWriter, r *http.Request) {
	var req itinerary.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "Invalid request body", nil)
		return
	}

	op := OperationID(r.Context())
	res, err := s.deps.Itineraries.Generate(r.Context(), UserID(r.Context()), req, op)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"itineraryJson": res.Itinerary,
		"markdown":      res.Markdown,
		"tripId":        res.TripID,
		"operationId":   op,
	})
}

func (s *Server) handleSearch(kind domain.OfferKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := domain.SearchRequest{
			Kind:        kind,
			Origin:      q.Get("origin"),
			Destination: q.Get("destination"),
			City:        q.Get("city"),
			DepartDate:  q.Get("depart_date"),
			ReturnDate:  q.Get("return_date"),
			CheckIn:     q.Get("check_in"),
			CheckOut:    q.Get("check_out"),
			Date:        q.Get("date"),
			UserID:      UserID(r.Context()),
		}
		if req.UserID == "" {
			req.UserID = anonymousUser
		}

		op := OperationID(r.Context())
		res, err := s.deps.Travel.Search(r.Context(), req, op)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":          true,
			"source":      res.Source,
			"provider":    res.Provider,
			"cached":      res.Cached,
			"results":     res.Offers,
			"operationId": op,
		})
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "Invalid request body", nil)
		return
	}

	uid := UserID(r.Context())
	key := uid
	if key == "" {
		key = clientIP(r)
	}

	op := OperationID(r.Context())
	reply, err := s.deps.Chat.Reply(r.Context(), chat.Request{Message: body.Message, UserID: uid, Key: key}, op)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	resp := map[string]any{
		"ok":          true,
		"source":      reply.Source,
		"reply":       reply.Reply,
		"operationId": op,
	}
	if reply.Model != "" {
		resp["meta"] = map[string]string{"model": reply.Model}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDebugImage runs one pipeline invocation. Query params: q, prefer
// (comma separated provider names), timeout_ms, max_attempts.
func (s *Server) handleDebugImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "Query param q is required", nil)
		return
	}

	op := OperationID(r.Context())
	opts := pipeline.Options{OperationID: op, KeyPrefix: "debug"}
	if prefer := q.Get("prefer"); prefer != "" {
		for _, name := range strings.Split(prefer, ",") {
			if name = strings.TrimSpace(name); name != "" {
				opts.PreferredOrder = append(opts.PreferredOrder, name)
			}
		}
	}
	if ms, err := strconv.Atoi(q.Get("timeout_ms")); err == nil && ms > 0 {
		opts.Timeout = time.Duration(ms) * time.Millisecond
	}
	if n, err := strconv.Atoi(q.Get("max_attempts")); err == nil && n > 0 {
		opts.MaxAttempts = n
	}

	asset, err := s.deps.Images.Run(r.Context(), query, opts)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "image": asset, "operationId": op})
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title   string          `json:"title"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "Invalid request body", nil)
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		body.Title = "Saved Trip"
	}

	trip := &domain.Trip{UserID: UserID(r.Context()), Title: body.Title, Payload: body.Payload}
	if err := s.deps.Trips.Create(r.Context(), trip); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "trip": trip, "operationId": OperationID(r.Context())})
}

func (s *Server) handleTripPDF(w http.ResponseWriter, r *http.Request) {
	trip, err := s.deps.Trips.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	pdf, err := itinerary.RenderPDF(trip)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="trip-`+trip.ID+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) handleDBPing(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	if typ == "" {
		typ = string(domain.EventTypePing)
	}
	ev, err := domain.NewEvent(domain.EventType(typ), map[string]any{"source": "api", "ok": true})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if err := s.deps.Events.Add(r.Context(), ev); err != nil {
		writeFailure(w, r, err)
		return
	}
	latest, err := s.deps.Events.Latest(r.Context(), 5)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "wrote": ev, "latest": latest})
}

func (s *Server) handlePrivacyExport(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Privacy.Export(r.Context(), UserID(r.Context()))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"user":        out.User,
		"trips":       out.Trips,
		"orders":      out.Orders,
		"order_items": out.OrderItems,
		"cart_items":  out.CartItems,
		"operationId": OperationID(r.Context()),
	})
}

func (s *Server) handlePrivacyDelete(w http.ResponseWriter, r *http.Request) {
	op := OperationID(r.Context())
	counts, err := s.deps.Privacy.Delete(r.Context(), UserID(r.Context()), op)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": counts, "operationId": op})
}

func (s *Server) handleLogIngest(w http.ResponseWriter, r *http.Request) {
	var record map[string]any
	if err := decodeJSON(r, &record); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "Invalid request body", nil)
		return
	}
	key, err := s.deps.Logs.Ingest(r.Context(), record)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "key": key, "operationId": OperationID(r.Context())})
}
