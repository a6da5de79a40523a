package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/plotforge/plotforge/internal/answers"
	"github.com/plotforge/plotforge/internal/cards"
	"github.com/plotforge/plotforge/internal/session"
)

var errMissingGoal = errors.New("goal is required")

type researchRequest struct {
	Goal        string   `json:"goal"`
	Brief       string   `json:"brief"`
	Constraints []string `json:"world_constraints"`
	Forbidden   []string `json:"forbidden"`
	Force       bool     `json:"force"`
	Offline     bool     `json:"offline"`
}

type answerSubmission struct {
	QuestionKey string `json:"question_key"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Kind        string `json:"kind"`
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var body researchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	if strings.TrimSpace(body.Goal) == "" {
		writeError(w, http.StatusBadRequest, errMissingGoal)
		return
	}

	pack, err := s.session.EnsurePack(r.Context(), session.Request{
		ProjectID:   pathParam(r, "projectID"),
		Chapter:     pathParam(r, "chapter"),
		Goal:        body.Goal,
		Brief:       body.Brief,
		Constraints: body.Constraints,
		Forbidden:   body.Forbidden,
		Force:       body.Force,
		Offline:     body.Offline,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, pack)
}

func (s *Server) handleGetPack(w http.ResponseWriter, r *http.Request) {
	pack, err := s.packs.Get(r.Context(), pathParam(r, "projectID"), pathParam(r, "chapter"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if pack == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no memory pack for this chapter"))
		return
	}
	writeJSON(w, http.StatusOK, pack)
}

// handlePackPreview renders the pack's memory block to HTML for frontends
// that show it inline.
func (s *Server) handlePackPreview(w http.ResponseWriter, r *http.Request) {
	pack, err := s.packs.Get(r.Context(), pathParam(r, "projectID"), pathParam(r, "chapter"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	payload, err := session.Decode(pack)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no memory pack for this chapter"))
		return
	}

	var html strings.Builder
	if err := s.markdown.Convert([]byte(payload.Memory), &html); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("rendering memory: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html.String()))
}

func (s *Server) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	var body []answerSubmission
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no answers submitted"))
		return
	}

	items := make([]answers.Answer, 0, len(body))
	for _, a := range body {
		if strings.TrimSpace(a.QuestionKey) == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("question_key is required"))
			return
		}
		items = append(items, answers.Answer{
			QuestionKey: a.QuestionKey,
			Question:    a.Question,
			Answer:      a.Answer,
			Kind:        a.Kind,
		})
	}

	err := s.session.SubmitAnswers(r.Context(), pathParam(r, "projectID"), pathParam(r, "chapter"), items)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"accepted": len(items)})
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	list, err := s.cards.List(r.Context(), pathParam(r, "projectID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []cards.Card{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpsertCard(w http.ResponseWriter, r *http.Request) {
	var card cards.Card
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding card: %w", err))
		return
	}
	if card.Name == "" || (card.Kind != cards.KindCharacter && card.Kind != cards.KindWorld) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("card needs a name and a valid kind"))
		return
	}

	card.ProjectID = pathParam(r, "projectID")
	if err := s.cards.Upsert(r.Context(), &card); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	kind := cards.Kind(pathParam(r, "kind"))
	if kind != cards.KindCharacter && kind != cards.KindWorld {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown card kind %q", kind))
		return
	}
	name := pathParam(r, "name")
	card, err := s.cards.Resolve(r.Context(), pathParam(r, "projectID"), kind, name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if card == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no %s card named %q", kind, name))
		return
	}
	if err := s.cards.Delete(r.Context(), card.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type importRequest struct {
	Root string `json:"root"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var body importRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	if body.Root == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("root is required"))
		return
	}

	result, err := s.importer.Run(r.Context(), pathParam(r, "projectID"), body.Root)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// pathParam returns a URL parameter with percent-encoding undone, so chapter
// and card names survive non-ASCII characters.
func pathParam(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are out; nothing left to do but log.
		log.Printf("warning: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
