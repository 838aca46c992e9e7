package attendance

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// qrPayload is the JSON encoded into the QR image shown to attendees.
type qrPayload struct {
	Version   int       `json:"v"`
	SessionID uuid.UUID `json:"session_id"`
}

// QRContent returns the scannable payload for a session.
func QRContent(sessionID uuid.UUID) string {
	b, _ := json.Marshal(qrPayload{Version: 1, SessionID: sessionID})
	return string(b)
}

// QRURL returns the deep link for clients that scan with a plain camera.
// Empty when no public base URL is configured.
func QRURL(baseURL string, sessionID uuid.UUID) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/attend/" + sessionID.String()
}

// ParseQRContent extracts the session id from a scanned payload.
func ParseQRContent(content string) (uuid.UUID, bool) {
	var p qrPayload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return uuid.Nil, false
	}
	if p.SessionID == uuid.Nil {
		return uuid.Nil, false
	}
	return p.SessionID, true
}
