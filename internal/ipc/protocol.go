package ipc

import "fmt"

// Request commands, discriminated by the "cmd" field.
const (
	CmdPing           = "ping"
	CmdRestart        = "restart"
	CmdRename         = "rename"
	CmdSetDescription = "set_description"
	CmdSetIcon        = "set_icon"
	CmdNotify         = "notify"
	CmdMoveToGroup    = "move_to_group"
)

// Request is a control operation sent by a client. The command tag decides
// which of the remaining fields are meaningful; it is decoded once at the
// protocol boundary and dispatched downstream without re-interpretation.
type Request struct {
	Cmd   string `json:"cmd"`
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
	Icon  string `json:"icon,omitempty"`
	Group string `json:"group,omitempty"`
}

// Response is the uniform reply shape for every request.
type Response struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// OK returns a bare success response.
func OK() Response {
	return Response{OK: true}
}

// OKWith returns a success response carrying a result value.
func OKWith(result any) Response {
	return Response{OK: true, Result: result}
}

// Errorf returns a failure response with a formatted message.
func Errorf(format string, args ...any) Response {
	return Response{OK: false, Error: fmt.Sprintf(format, args...)}
}
