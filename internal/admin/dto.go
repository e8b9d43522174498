package admin

import (
	"encoding/json"

	"vrrelay/pkg/vrevent"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// EventRequest is an event to inject. Type and Data follow the wire
// format's m_DataTypeName and m_Data.
type EventRequest struct {
	Name string          `json:"name" binding:"required"`
	Type vrevent.TypeTag `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event validates the request through the wire decoder so admin injection
// accepts exactly what a TCP client could send.
func (r EventRequest) Event() (vrevent.Event, error) {
	wire := struct {
		Name string          `json:"m_Name"`
		Type vrevent.TypeTag `json:"m_DataTypeName"`
		Data json.RawMessage `json:"m_Data,omitempty"`
	}{r.Name, r.Type, r.Data}
	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	return vrevent.Decode(raw)
}

type HealthResponse struct {
	Status    string `json:"status"`
	Clients   int    `json:"clients"`
	WSClients int    `json:"ws_clients"`
}
