package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/alphabill-org/chainauthority/types"
)

// writeCBORResponse replies to the request with the given response and HTTP code.
func writeCBORResponse(w http.ResponseWriter, response any, statusCode int) {
	w.Header().Set(headerContentType, applicationCBOR)
	w.WriteHeader(statusCode)
	if err := types.Cbor.Encode(w, response); err != nil {
		log.Warning("Failed to write CBOR response: %v", err)
	}
}

func writeJSONResponse(w http.ResponseWriter, response any, statusCode int) {
	w.Header().Set(headerContentType, applicationJson)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Warning("Failed to write JSON response: %v", err)
	}
}

// writeError replies to the request with the error message and HTTP code.
// The caller should ensure no further writes are done to w.
func writeError(w http.ResponseWriter, e error, statusCode int) {
	writeJSONResponse(w, struct {
		Error string `json:"error"`
	}{fmt.Sprintf("%v", e)}, statusCode)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, errors.New("404 not found"), http.StatusNotFound)
}
