package middleware

import (
	"net/http"
	"strings"

	"github.com/iho/bankledger/internal/usecase"
)

// ActorHeader carries the identity of the operator issuing the request.
const ActorHeader = "X-Actor-ID"

const maxActorLength = 128

// Actor puts the X-Actor-ID header value into the request context. Requests
// without one are attributed to usecase.SystemActor.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if len(actor) > maxActorLength {
			writeJSONError(w, http.StatusBadRequest, "actor id too long")
			return
		}

		next.ServeHTTP(w, r.WithContext(usecase.WithActor(r.Context(), actor)))
	})
}
