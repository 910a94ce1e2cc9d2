package vigil

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Middleware returns an http.Handler that evaluates outbound-shaped
// requests before passing to the next handler. Refused requests receive
// a 403 with a JSON body carrying the message and alternatives.
func (c *Client) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, _ := c.Check(r.Context(), actionFromRequest(r))

		if !result.Allowed() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{
				"refused":      true,
				"state":        string(result.State),
				"message":      result.Message,
				"alternatives": result.Alternatives,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// actionFromRequest maps an HTTP request to an SDK Action. Reads are
// hinted reversible; mutating methods are hinted unknown, which the
// classifier tightens rather than trusts.
func actionFromRequest(r *http.Request) Action {
	resource := r.URL.String()
	if r.URL.Host == "" && r.Host != "" {
		resource = r.Host + r.URL.RequestURI()
	}

	a := Action{
		Kind:    "network",
		Target:  resource,
		Signals: []string{strings.ToLower(r.Method)},
	}
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		a.Reversibility = "reversible"
	} else {
		a.Reversibility = "unknown"
	}
	return a
}
