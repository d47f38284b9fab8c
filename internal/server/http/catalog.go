package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/and161185/vazadinhas/internal/authctx"
	"github.com/and161185/vazadinhas/internal/convert"
	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/model"
)

const publicCache = "public, max-age=30"

// filterFromQuery reads genre and q. Only active items are listed unless includeInactive.
func filterFromQuery(r *http.Request, includeInactive bool) (model.ContentFilter, error) {
	q := r.URL.Query()
	f := model.ContentFilter{ActiveOnly: !includeInactive, Query: q.Get("q")}
	if g := q.Get("genre"); g != "" {
		genre, err := model.ParseGenre(g)
		if err != nil {
			return f, fmt.Errorf("%w: %v", errs.ErrValidation, err)
		}
		f.Genre = &genre
	}
	return f, nil
}

func (a *API) listItems(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r, false)
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	items, err := a.catalog.List(r.Context(), f)
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", publicCache)
	respondWithJSON(w, http.StatusOK, convert.ToItems(items, false))
}

func (a *API) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := convert.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	it, err := a.catalog.Get(r.Context(), id, false)
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", publicCache)
	respondWithJSON(w, http.StatusOK, convert.ToItem(it, false))
}

// play answers with the access decision; the playable ref is present only when allowed.
func (a *API) play(w http.ResponseWriter, r *http.Request) {
	id, err := convert.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	sess, _ := authctx.SessionFromCtx(r.Context())
	res, err := a.playback.Play(r.Context(), sess, id)
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respondWithJSON(w, http.StatusOK, convert.ToPlay(res))
}

func (a *API) adminListItems(w http.ResponseWriter, r *http.Request) {
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))
	f, err := filterFromQuery(r, includeInactive)
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	items, err := a.catalog.List(r.Context(), f)
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, convert.ToItems(items, true))
}

func (a *API) createItem(w http.ResponseWriter, r *http.Request) {
	var in convert.ItemInput
	if err := convert.Decode(r.Body, &in); err != nil {
		a.respondWithError(w, r, err)
		return
	}
	it, err := a.catalog.Create(r.Context(), in.Model())
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, convert.ToItem(it, true))
}

func (a *API) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := convert.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	var in convert.ItemPatch
	if err := convert.Decode(r.Body, &in); err != nil {
		a.respondWithError(w, r, err)
		return
	}
	it, err := a.catalog.Update(r.Context(), id, in.Model())
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, convert.ToItem(it, true))
}

func (a *API) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := convert.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	if err := a.catalog.Delete(r.Context(), id); err != nil {
		a.respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
