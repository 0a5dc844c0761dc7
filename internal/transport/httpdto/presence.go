package httpdto

type HeartbeatRequest struct {
	Typing bool `json:"typing"`
}
