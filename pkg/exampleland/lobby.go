// Package exampleland provides a concrete, minimal land.Definition used by
// cmd/server's default registration and exercised end to end by test/e2e. It
// is a chat lobby: players join, broadcast chat lines, and see each other's
// presence. It configures CanJoin, OnJoin, OnLeave, two Actions and an Event
// against both ScopeBroadcast fields and a ScopePerPlayerSlice field; it sets
// no OnDestroy hook.
package exampleland

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/opd-ai/landkeep/pkg/land"
)

// MaxOccupants caps how many players a lobby instance admits; joins past
// this limit are denied rather than silently queued.
const MaxOccupants = 32

// MaxChatHistory bounds how many chat lines LobbyState.ChatLog retains; the
// oldest line is dropped once the log would exceed it.
const MaxChatHistory = 50

// ChatMessage is one broadcast chat line.
type ChatMessage struct {
	PlayerID  land.PlayerID `json:"playerId"`
	Text      string        `json:"text"`
	Timestamp time.Time     `json:"timestamp"`
}

// Occupant is the presence record shown for every player currently joined.
type Occupant struct {
	DisplayName string    `json:"displayName"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Note is a private per-player scratchpad, demonstrating
// land.ScopePerPlayerSlice: every player sees only their own Notes entry.
type Note struct {
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LobbyState is the chat lobby's shared land state.
type LobbyState struct {
	ChatLog   []ChatMessage              `json:"chatLog"`
	Occupants map[land.PlayerID]Occupant `json:"occupants"`
	Notes     map[land.PlayerID]Note     `json:"notes"`
}

// SendChatPayload is the Action payload for "sendChat".
type SendChatPayload struct {
	Text string `json:"text"`
}

// SetDisplayNamePayload is the Event payload for "setDisplayName".
type SetDisplayNamePayload struct {
	DisplayName string `json:"displayName"`
}

// SetNotePayload is the Action payload for "setNote".
type SetNotePayload struct {
	Text string `json:"text"`
}

// NewLobbyState constructs the zero-occupant initial state for a fresh
// instance (land.Definition.NewState).
func NewLobbyState() *LobbyState {
	return &LobbyState{
		ChatLog:   []ChatMessage{},
		Occupants: make(map[land.PlayerID]Occupant),
		Notes:     make(map[land.PlayerID]Note),
	}
}

// Definition returns the chat lobby's land.Definition[LobbyState].
func Definition() *land.Definition[LobbyState] {
	return &land.Definition[LobbyState]{
		NewState: NewLobbyState,

		CanJoin: canJoin,
		OnJoin:  onJoin,
		OnLeave: onLeave,

		Actions: map[string]land.ActionFunc[LobbyState]{
			"sendChat": sendChat,
			"setNote":  setNote,
		},
		Events: map[string]land.EventFunc[LobbyState]{
			"setDisplayName": setDisplayName,
		},

		FieldScopes: map[string]land.FieldScope{
			"chatLog":   land.ScopeBroadcast,
			"occupants": land.ScopeBroadcast,
			"notes":     land.ScopePerPlayerSlice,
		},
	}
}

func canJoin(state *LobbyState, session land.PlayerSession, ctx land.LandContext) land.JoinDecision {
	if len(state.Occupants) >= MaxOccupants {
		return land.Denied("lobby full")
	}
	return land.Allowed(session.PlayerID)
}

func onJoin(state *LobbyState, ctx land.LandContext) {
	name := ctx.Metadata["displayName"]
	if name == "" {
		name = string(ctx.PlayerID)
	}
	state.Occupants[ctx.PlayerID] = Occupant{DisplayName: name, JoinedAt: time.Now()}
}

func onLeave(state *LobbyState, ctx land.LandContext) {
	delete(state.Occupants, ctx.PlayerID)
	delete(state.Notes, ctx.PlayerID)
}

func sendChat(state *LobbyState, payload json.RawMessage, ctx land.LandContext) (interface{}, error) {
	var req SendChatPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("exampleland: decode sendChat payload: %w", err)
	}
	if req.Text == "" {
		return nil, fmt.Errorf("exampleland: chat text must not be empty")
	}

	state.ChatLog = append(state.ChatLog, ChatMessage{
		PlayerID:  ctx.PlayerID,
		Text:      req.Text,
		Timestamp: time.Now(),
	})
	if excess := len(state.ChatLog) - MaxChatHistory; excess > 0 {
		state.ChatLog = state.ChatLog[excess:]
	}
	return map[string]int{"chatLogLength": len(state.ChatLog)}, nil
}

func setNote(state *LobbyState, payload json.RawMessage, ctx land.LandContext) (interface{}, error) {
	var req SetNotePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("exampleland: decode setNote payload: %w", err)
	}
	state.Notes[ctx.PlayerID] = Note{Text: req.Text, UpdatedAt: time.Now()}
	return nil, nil
}

func setDisplayName(state *LobbyState, payload json.RawMessage, ctx land.LandContext) {
	var req SetDisplayNamePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	if req.DisplayName == "" {
		return
	}
	occupant, ok := state.Occupants[ctx.PlayerID]
	if !ok {
		return
	}
	occupant.DisplayName = req.DisplayName
	state.Occupants[ctx.PlayerID] = occupant
}
