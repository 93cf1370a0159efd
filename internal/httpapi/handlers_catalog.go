package httpapi

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/MrEthical07/storeauth/catalog"
)

type storeRequest struct {
	Name string `json:"name"`
}

type storeResponse struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Items []catalog.Item `json:"items"`
}

type itemRequest struct {
	Name    string           `json:"name"`
	Price   *decimal.Decimal `json:"price"`
	StoreID int64            `json:"store_id"`
}

func (req itemRequest) toItem(id int64) (catalog.Item, error) {
	if req.Price == nil {
		return catalog.Item{}, &catalog.ValidationError{Fields: map[string]string{"price": "is required"}}
	}
	return catalog.Item{ID: id, Name: req.Name, Price: *req.Price, StoreID: req.StoreID}, nil
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.catalog.ListStores(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]catalog.Store{"stores": stores})
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	st, err := s.catalog.CreateStore(r.Context(), catalog.Store{Name: req.Name})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, storeResponse{ID: st.ID, Name: st.Name, Items: []catalog.Item{}})
}

func (s *Server) handleGetStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	st, err := s.catalog.GetStore(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.catalog.ListItems(r.Context(), st.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, storeResponse{ID: st.ID, Name: st.Name, Items: items})
}

func (s *Server) handlePutStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	st, err := s.catalog.PutStore(r.Context(), catalog.Store{ID: id, Name: req.Name})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.catalog.DeleteStore(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "store deleted"})
}

// handleListItems accepts an optional store_id query parameter.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	var storeID int64
	if raw := r.URL.Query().Get("store_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			s.writeError(w, r, &catalog.ValidationError{Fields: map[string]string{"store_id": "must be a positive integer"}})
			return
		}
		storeID = v
	}

	items, err := s.catalog.ListItems(r.Context(), storeID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]catalog.Item{"items": items})
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	it, err := req.toItem(0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	it, err = s.catalog.CreateItem(r.Context(), it)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	it, err := s.catalog.GetItem(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// handlePutItem upserts. store_id is only read when the item does not exist
// yet.
func (s *Server) handlePutItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	it, err := req.toItem(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	it, err = s.catalog.PutItem(r.Context(), it)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.catalog.DeleteItem(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "item deleted"})
}
