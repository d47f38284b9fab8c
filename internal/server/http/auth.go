package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/and161185/vazadinhas/internal/authctx"
	"github.com/and161185/vazadinhas/internal/convert"
	"github.com/and161185/vazadinhas/internal/model"
)

func (a *API) signIn(w http.ResponseWriter, r *http.Request) {
	var in convert.Credentials
	if err := convert.Decode(r.Body, &in); err != nil {
		a.respondWithError(w, r, err)
		return
	}
	sess, err := a.identity.SignInOrRegister(r.Context(), in.Email, in.Password, ClientIPFromContext(r.Context()))
	if err != nil {
		a.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, convert.ToSession(sess))
}

func (a *API) signOut(w http.ResponseWriter, r *http.Request) {
	sess, _ := authctx.SessionFromCtx(r.Context())
	if err := a.identity.SignOut(r.Context(), sess); err != nil {
		a.respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) currentSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := authctx.SessionFromCtx(r.Context())
	out := convert.ToSession(sess)
	out.Token = ""
	respondWithJSON(w, http.StatusOK, out)
}

// sessionEvents streams session changes of the caller as server-sent events.
// The stream ends when the client goes away or the caller's own session signs out.
func (a *API) sessionEvents(w http.ResponseWriter, r *http.Request) {
	sess, _ := authctx.SessionFromCtx(r.Context())
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	events, cancel := a.identity.Events(sess.UserID)
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(a.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			b, err := json.Marshal(convert.ToSessionEvent(ev))
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, b); err != nil {
				return
			}
			if ev.Kind == model.SessionSignedOut && ev.SessionID == sess.ID {
				_ = rc.Flush()
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
