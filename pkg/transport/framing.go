package transport

// Frame discriminators. The adapter is the only component that writes to a
// Connection once a session is bound, and it multiplexes two distinct byte
// shapes over the same stream: ordinary wire.Codec messages (action
// responses, server events, kick notices) and patch-encoded StateUpdate
// frames, which for opcodeMessagePack are raw MessagePack rather than JSON
// and so cannot safely be embedded inside a wire.EventMessage's JSON
// payload field. A one-byte prefix lets a real client tell the two apart
// without ambiguity before choosing whether to hand the remainder to
// wire.Codec or patch.Decoder (documented in DESIGN.md as a necessary,
// spec-silent framing decision).
const (
	frameKindMessage     byte = 0
	frameKindStateUpdate byte = 1
)

func frameMessage(data []byte) []byte {
	out := make([]byte, 1+len(data))
	out[0] = frameKindMessage
	copy(out[1:], data)
	return out
}

func frameStateUpdate(data []byte) []byte {
	out := make([]byte, 1+len(data))
	out[0] = frameKindStateUpdate
	copy(out[1:], data)
	return out
}

// FrameMessage exports the wire.Codec framing for callers outside this
// package that write directly to a Connection during the handshake phase
// (pkg/router), so handshake and post-bind traffic share one framing
// convention end to end.
func FrameMessage(data []byte) []byte { return frameMessage(data) }
