package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/and161185/vazadinhas/internal/authctx"
	"github.com/and161185/vazadinhas/internal/convert"
)

func (a *API) subscriptionStatus(w http.ResponseWriter, r *http.Request) {
	sess, _ := authctx.SessionFromCtx(r.Context())
	st, err := a.subs.Status(r.Context(), sess)
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respondWithJSON(w, http.StatusOK, convert.ToStatus(st))
}

func (a *API) subscriptionHistory(w http.ResponseWriter, r *http.Request) {
	sess, _ := authctx.SessionFromCtx(r.Context())
	recs, err := a.subs.History(r.Context(), sess.UserID)
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, convert.ToSubscriptions(recs))
}

func (a *API) requestPlan(w http.ResponseWriter, r *http.Request) {
	sess, _ := authctx.SessionFromCtx(r.Context())
	var in convert.PlanRequest
	if err := convert.Decode(r.Body, &in); err != nil {
		a.respondWithError(w, r, err)
		return
	}
	rec, err := a.subs.RequestPlan(r.Context(), sess, in.PaymentProofURL)
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, convert.ToSubscription(rec))
}

func (a *API) listPending(w http.ResponseWriter, r *http.Request) {
	recs, err := a.subs.ListPending(r.Context())
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, convert.ToSubscriptions(recs))
}

func (a *API) approve(w http.ResponseWriter, r *http.Request) {
	id, err := convert.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	rec, err := a.subs.Approve(r.Context(), id)
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, convert.ToSubscription(rec))
}

// reject deletes the record; there is nothing to return.
func (a *API) reject(w http.ResponseWriter, r *http.Request) {
	id, err := convert.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	if err := a.subs.Reject(r.Context(), id); err != nil {
		a.respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
