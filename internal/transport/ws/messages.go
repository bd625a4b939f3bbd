package ws

import "encoding/json"

// Inbound frame types.
const (
	typeAuthenticate    = "authenticate"
	typeJoinExhibition  = "join-exhibition"
	typeLeaveExhibition = "leave-exhibition"
	typePing            = "ping"
)

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// authenticatePayload is the handshake body. When a token is verified its
// claims take precedence over UserID and UserRole.
type authenticatePayload struct {
	UserID   string `json:"userId" validate:"max=128"`
	UserRole string `json:"userRole" validate:"omitempty,max=32"`
	Token    string `json:"token" validate:"max=2048"`
}

type exhibitionPayload struct {
	ExhibitionID string `json:"exhibitionId" validate:"required,max=128,printascii"`
}
