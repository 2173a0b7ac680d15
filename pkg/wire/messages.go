// Package wire defines the JSON frames exchanged between clients and the
// chessio server. Shapes are stable: clients key off the "type" field.
package wire

import "time"

// Client → server message types.
const (
	TypeAuth       = "auth"
	TypeFindMatch  = "find_match"
	TypeMove       = "move"
	TypeGetHistory = "get_history"
)

// Server → client message types.
const (
	TypeWelcome      = "welcome"
	TypeAuthResponse = "auth_response"
	TypeWaiting      = "waiting_for_opponent"
	TypeGameFound    = "game_found"
	TypeInitGame     = "init_game"
	TypeGameOver     = "game_over"
	TypeGameHistory  = "game_history"
	TypeEvicted      = "evicted"
	TypeError        = "error"
)

// Move is a from/to square pair in algebraic coordinates ("e2", "e4").
// Pawn promotion is always to a queen.
type Move struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ClientMessage is the envelope for every inbound frame.
type ClientMessage struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Move     *Move  `json:"move,omitempty"`
}

// UserData carries account stats returned on successful authentication.
type UserData struct {
	Username    string `json:"username"`
	GamesPlayed int    `json:"gamesPlayed"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Draws       int    `json:"draws"`
}

// GamePayload is the nested payload of init_game, move and game_over frames.
type GamePayload struct {
	Color    string `json:"color,omitempty"`
	Opponent string `json:"opponent,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Winner   string `json:"winner,omitempty"`
}

// HistoryGame is one finished (or abandoned) game in a game_history frame.
type HistoryGame struct {
	ID          string    `json:"id"`
	WhitePlayer string    `json:"whitePlayer"`
	BlackPlayer string    `json:"blackPlayer"`
	Moves       []string  `json:"moves"`
	Result      string    `json:"result"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime,omitzero"`
}

// ServerMessage is the envelope for every outbound frame. Fields not used by
// a given type are omitted from the encoding.
type ServerMessage struct {
	Type     string        `json:"type"`
	Message  string        `json:"message,omitempty"`
	Success  *bool         `json:"success,omitempty"`
	UserData *UserData     `json:"userData,omitempty"`
	Opponent string        `json:"opponent,omitempty"`
	Payload  *GamePayload  `json:"payload,omitempty"`
	Games    []HistoryGame `json:"games,omitempty"`
}

func Welcome(message string) ServerMessage {
	return ServerMessage{Type: TypeWelcome, Message: message}
}

func AuthOK(message string, data *UserData) ServerMessage {
	ok := true
	return ServerMessage{Type: TypeAuthResponse, Success: &ok, Message: message, UserData: data}
}

func AuthFailed(message string) ServerMessage {
	ok := false
	return ServerMessage{Type: TypeAuthResponse, Success: &ok, Message: message}
}

func Waiting() ServerMessage {
	return ServerMessage{Type: TypeWaiting}
}

func GameFound(opponent string) ServerMessage {
	return ServerMessage{Type: TypeGameFound, Opponent: opponent}
}

func InitGame(color, opponent string) ServerMessage {
	return ServerMessage{Type: TypeInitGame, Payload: &GamePayload{Color: color, Opponent: opponent}}
}

func MoveMade(mv Move) ServerMessage {
	return ServerMessage{Type: TypeMove, Payload: &GamePayload{From: mv.From, To: mv.To}}
}

func GameOver(winner string) ServerMessage {
	return ServerMessage{Type: TypeGameOver, Payload: &GamePayload{Winner: winner}}
}

func GameHistory(games []HistoryGame) ServerMessage {
	return ServerMessage{Type: TypeGameHistory, Games: games}
}

func Evicted(message string) ServerMessage {
	return ServerMessage{Type: TypeEvicted, Message: message}
}

func Error(message string) ServerMessage {
	return ServerMessage{Type: TypeError, Message: message}
}
