package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"

	"prepmate-backend/internal/middleware"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// currentUserID pulls the authenticated user's id out of the request
// context. A false return has already written a 401.
func currentUserID(w http.ResponseWriter, r *http.Request) (bson.ObjectID, bool) {
	hex := middleware.GetUserID(r.Context())
	if hex == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return bson.NilObjectID, false
	}
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return bson.NilObjectID, false
	}
	return id, true
}

// pathObjectID parses an ObjectID URL parameter. A false return has
// already written a 400.
func pathObjectID(w http.ResponseWriter, raw, name string) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return bson.NilObjectID, false
	}
	return id, true
}
