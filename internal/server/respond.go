package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/melodysyncer/melodysyncer/internal/shared"
)

const (
	msgExhausted  = "API Limit Exceeded for all YouTube API Keys. Please try again later or enter your own YouTube API Key."
	msgBadSong    = "Please enter a valid Spotify song ID"
	msgBadList    = "Please enter a valid Spotify playlist ID"
	msgNoTrack    = "Could not fetch song information from Spotify. Please check if the song ID is valid."
	msgNoPlaylist = "Playlist not found. Please check if the playlist exists and is public."
	msgEmptyList  = "This playlist is empty"
	msgNoMatch    = "No matching song found on YouTube"
	msgTimeout    = "The request took too long. Please try again later."
	msgUnexpected = "An unexpected error occurred. Please try again later."
	msgNoData     = "No analytics data found"
)

// envelope is the common response shape; data fields are flattened into it by callers.
type envelope map[string]any

func successBody(fields envelope) envelope {
	fields["status"] = "success"
	return fields
}

func errorBody(message string) envelope {
	return envelope{"status": "error", "message": message}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// statusFor maps a resolution error onto an HTTP status and client message.
// invalidMsg is used for [shared.ErrInvalidInput], which differs between songs and playlists.
func statusFor(err error, invalidMsg string) (int, string) {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, invalidMsg
	case errors.Is(err, shared.ErrKeysExhausted):
		return http.StatusServiceUnavailable, msgExhausted
	case errors.Is(err, shared.ErrTrackNotFound):
		return http.StatusNotFound, msgNoTrack
	case errors.Is(err, shared.ErrPlaylistNotFound):
		return http.StatusNotFound, msgNoPlaylist
	case errors.Is(err, shared.ErrNoMatch), errors.Is(err, shared.ErrNoResults):
		return http.StatusNotFound, msgNoMatch
	case errors.Is(err, shared.ErrPlaylistEmpty):
		return http.StatusUnprocessableEntity, msgEmptyList
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout, msgTimeout
	default:
		return http.StatusInternalServerError, msgUnexpected
	}
}
