package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/uiregistry/internal/contacts"
	"github.com/vango-dev/uiregistry/internal/errors"
	"github.com/vango-dev/uiregistry/pkg/tablestate"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError reports err with the status of its code. Messages of
// uncoded errors are not exposed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	body := errorBody{Error: "Internal server error"}
	if re, ok := errors.As(err); ok {
		body.Code = re.Code
		if status < 500 {
			body.Error = re.Message
			if re.Resource != "" {
				body.Error += ": " + re.Resource
			}
			if re.Detail != "" && re.Code == "E034" {
				body.Error += ": " + re.Detail
			}
		} else if re.Message != "" {
			body.Error = re.Message
		}
	}
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("E001").WithDetail("Invalid JSON body: " + err.Error())
	}
	return nil
}

// Registry

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	m, err := s.registry.Manifest(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.registry.Item(r.Context(), chi.URLParam(r, "component"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.registry.Tree(r.Context(), chi.URLParam(r, "component"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	component := chi.URLParam(r, "component")
	p, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		s.writeError(w, r, errors.New("E014").WithResource(chi.URLParam(r, "*")))
		return
	}
	if _, err := s.registry.Item(r.Context(), component); err != nil {
		s.writeError(w, r, err)
		return
	}
	content, err := s.registry.ReadFile(r.Context(), component, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// Table state

type tableStateResponse struct {
	State tablestate.State `json:"state"`
	Query string           `json:"query"`
}

// handleTableState echoes the canonical form of the parsed query so clients
// can normalize a shared URL.
func (s *Server) handleTableState(w http.ResponseWriter, r *http.Request) {
	state := s.codec.Parse(r.URL.Query())
	writeJSON(w, http.StatusOK, tableStateResponse{State: state, Query: s.codec.Encode(state)})
}

// Contacts

type pageLinks struct {
	Self string `json:"self"`
	Prev string `json:"prev,omitempty"`
	Next string `json:"next,omitempty"`
}

type listResponse struct {
	Data      []contacts.Contact `json:"data"`
	Count     int                `json:"count"`
	PageCount int                `json:"pageCount"`
	State     tablestate.State   `json:"state"`
	Links     pageLinks          `json:"links"`
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	state := s.codec.Parse(query)

	page, err := s.store.List(r.Context(), state)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data:      page.Data,
		Count:     page.Total,
		PageCount: page.PageCount,
		State:     state,
		Links:     s.pageLinks(r.URL.Path, query, state.Pagination, page.PageCount),
	})
}

// pageLinks builds neighbour page URLs, keeping every other parameter of
// the request.
func (s *Server) pageLinks(path string, query url.Values, p tablestate.Pagination, pageCount int) pageLinks {
	link := func(index int) string {
		q, err := s.codec.MergeIntoQuery(query, tablestate.NewUpdate().Pagination(tablestate.Pagination{
			PageIndex: index,
			PageSize:  p.PageSize,
		}))
		if err != nil {
			return path
		}
		if enc := q.Encode(); enc != "" {
			return path + "?" + enc
		}
		return path
	}

	links := pageLinks{Self: link(p.PageIndex)}
	if p.PageIndex > 0 {
		links.Prev = link(min(p.PageIndex-1, max(pageCount-1, 0)))
	}
	if p.PageIndex+1 < pageCount {
		links.Next = link(p.PageIndex + 1)
	}
	return links
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type actionResponse struct {
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
	Data         *contacts.Contact `json:"data,omitempty"`
	DeletedCount *int              `json:"deletedCount,omitempty"`
}

// writeActionError reports a failed mutation in the action envelope.
func (s *Server) writeActionError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	msg := "Internal server error"
	if re, ok := errors.As(err); ok && status < 500 {
		msg = re.Message
		if re.Detail != "" {
			msg += ": " + re.Detail
		}
	}
	if status >= 500 {
		s.logger.Error("contact action failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, actionResponse{Error: msg})
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var in contacts.Input
	if err := decodeJSON(r, &in); err != nil {
		s.writeActionError(w, r, err)
		return
	}
	c, err := s.store.Create(r.Context(), in)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, actionResponse{Success: true, Data: c})
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var in contacts.Input
	if err := decodeJSON(r, &in); err != nil {
		s.writeActionError(w, r, err)
		return
	}
	c, err := s.store.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Data: c})
}

func (s *Server) handleDeleteContacts(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeActionError(w, r, err)
		return
	}
	n, err := s.store.Delete(r.Context(), body.IDs)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, DeletedCount: &n})
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.Companies(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}
