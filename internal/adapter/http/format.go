package http

import (
	"net/http"

	"github.com/couchcryptid/storm-data-pros/internal/domain"
)

// writeResponse encodes v as JSON, or as MessagePack when the request asks
// for ?format=msgpack.
func writeResponse(w http.ResponseWriter, r *http.Request, status int, v any) {
	enc := domain.EncodingJSON
	if r.URL.Query().Get("format") == string(domain.EncodingMsgpack) {
		enc = domain.EncodingMsgpack
	}

	data, err := domain.Marshal(v, enc)
	if err != nil {
		http.Error(w, "encode response: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", enc.ContentType())
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // client went away
}
