package network

const (
	MsgTypeHeartbeat   = 1
	MsgTypeJoinGame    = 101
	MsgTypeLeaveGame   = 102
	MsgTypeCreateGame  = 103
	MsgTypeDispatch    = 201
	MsgTypeError       = 299
	MsgTypeNavigate    = 301
	MsgTypeBoardState  = 302
	MsgTypeActionEvent = 303
)

// GameRef names a game in join and create messages.
type GameRef struct {
	GameID string `json:"game_id"`
}

type ErrorMessage struct {
	Error string `json:"error"`
}

type NavigateMessage struct {
	Route string `json:"route"`
}
