package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/mcp-training/damegame/api"
	"github.com/wricardo/mcp-training/damegame/game/engine"
	"github.com/wricardo/mcp-training/damegame/game/service"
	"github.com/wricardo/mcp-training/damegame/game/session"
	"github.com/wricardo/mcp-training/damegame/pkg/logger"
)

func newRESTServer(t *testing.T) *httptest.Server {
	t.Helper()
	manager := session.NewManager(engine.NewDame(engine.DefaultMaxPlies), session.Options{
		Depth:         1,
		WorkerTimeout: 5 * time.Second,
	})
	server := httptest.NewServer(api.NewServer(service.NewGameService(manager), nil, "", logger.Discard()))
	t.Cleanup(func() {
		server.Close()
		manager.Close()
	})
	return server
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}

	result, err := handler(context.Background(), request)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	if result == nil {
		t.Fatalf("%s returned nil result", name)
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content from %s", name)
	}
	return text.Text, result.IsError
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:5002/rest"
	client := NewClient(baseURL + "/")

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"uid":"abc","next_move":"Black"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	err := client.apiCall(context.Background(), "GET", "/get/abc", nil, &response)
	if err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}

	if response["uid"] != "abc" {
		t.Errorf("Expected uid abc, got %v", response["uid"])
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	err := client.apiCall(context.Background(), "GET", "/get/abc", nil, nil)
	if err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	t.Run("error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"session not found: abc"}`))
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/get/abc", nil, nil)
		if err == nil || err.Error() != "session not found: abc" {
			t.Errorf("Expected the server's error message, got %v", err)
		}
	})

	t.Run("plain body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/get/abc", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "API error") {
			t.Errorf("Expected 'API error', got %v", err)
		}
	})
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    int
		wantErr bool
	}{
		{"json number", float64(5), 5, false},
		{"int", 3, 3, false},
		{"numeric string", "7", 7, false},
		{"fraction", 2.5, 0, true},
		{"word", "seven", 0, true},
		{"missing", nil, 0, true},
		{"bool", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := intArg(map[string]interface{}{"x": tt.value}, "x")
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %v", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("intArg failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestClient_GameFlow(t *testing.T) {
	client := NewClient(newRESTServer(t).URL)

	text, isErr := callTool(t, client.handleNewGame, "new_game", map[string]interface{}{
		"player_white": "human",
		"player_black": "human",
	})
	if isErr {
		t.Fatalf("new_game returned error: %s", text)
	}
	if !strings.Contains(text, "Next move: Black") || !strings.Contains(text, "a b c d e f g h") {
		t.Errorf("Unexpected new_game output: %s", text)
	}
	line := strings.SplitN(text, "\n", 2)[0]
	sessionID := strings.TrimPrefix(line, "Created session: ")
	if sessionID == "" || sessionID == line {
		t.Fatalf("Could not find session ID in: %s", text)
	}

	text, isErr = callTool(t, client.handleSelectPiece, "select_piece", map[string]interface{}{
		"session_id": sessionID,
		"x":          float64(1),
		"y":          float64(5),
	})
	if isErr || !strings.Contains(text, "(0,4)") || !strings.Contains(text, "(2,4)") {
		t.Errorf("Unexpected select_piece output: %s", text)
	}

	text, isErr = callTool(t, client.handleMovePiece, "move_piece", map[string]interface{}{
		"session_id": sessionID,
		"x":          float64(1),
		"y":          float64(5),
		"dx":         float64(0),
		"dy":         "4",
	})
	if isErr {
		t.Fatalf("move_piece returned error: %s", text)
	}
	if !strings.Contains(text, "b6-a5") || !strings.Contains(text, "Next move: White") {
		t.Errorf("Unexpected move_piece output: %s", text)
	}

	text, _ = callTool(t, client.handlePollUpdate, "poll_update", map[string]interface{}{
		"session_id": sessionID,
	})
	if !strings.Contains(text, "Next move: White") {
		t.Errorf("Expected the moved board from poll_update, got: %s", text)
	}

	text, _ = callTool(t, client.handlePollUpdate, "poll_update", map[string]interface{}{
		"session_id": sessionID,
	})
	if !strings.Contains(text, "No new board yet") {
		t.Errorf("Expected an empty poll, got: %s", text)
	}

	text, _ = callTool(t, client.handleSessionInfo, "session_info", map[string]interface{}{
		"session_id": sessionID,
	})
	if !strings.Contains(text, "State: awaiting_human_move") || !strings.Contains(text, "Next move: White") {
		t.Errorf("Unexpected session_info output: %s", text)
	}

	text, _ = callTool(t, client.handleListSessions, "list_sessions", map[string]interface{}{})
	if !strings.Contains(text, "Sessions (1)") || !strings.Contains(text, sessionID) {
		t.Errorf("Unexpected list_sessions output: %s", text)
	}
}

func TestClient_ToolErrors(t *testing.T) {
	client := NewClient(newRESTServer(t).URL)

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
		want    string
	}{
		{"bad player kind", client.handleNewGame, map[string]interface{}{"player_white": "robot", "player_black": "ai"}, "player"},
		{"missing player", client.handleNewGame, map[string]interface{}{"player_white": "ai"}, "player_black is required"},
		{"unknown session", client.handleSessionInfo, map[string]interface{}{"session_id": "nope"}, "not found"},
		{"missing coordinate", client.handleSelectPiece, map[string]interface{}{"session_id": "nope", "x": float64(1)}, "y is required"},
		{"move in unknown session", client.handleMovePiece, map[string]interface{}{"session_id": "nope", "x": 1, "y": 5, "dx": 0, "dy": 4}, "not found"},
		{"retry unknown session", client.handleRetryAI, map[string]interface{}{"session_id": "nope"}, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := callTool(t, tt.handler, tt.name, tt.args)
			if !isErr {
				t.Errorf("Expected an error result, got: %s", text)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("Expected %q in %q", tt.want, text)
			}
		})
	}
}

func TestClient_handleGameRules(t *testing.T) {
	client := NewClient("http://localhost:5002")

	text, isErr := callTool(t, client.handleGameRules, "game_rules", map[string]interface{}{})
	if isErr {
		t.Fatalf("game_rules returned error: %s", text)
	}

	for _, content := range []string{"BOARD:", "PIECES:", "CAPTURES:", "PROMOTION:", "END OF GAME:", "WORKFLOW:"} {
		if !strings.Contains(text, content) {
			t.Errorf("Expected '%s' in rules", content)
		}
	}
}

func TestFormatInfo(t *testing.T) {
	info := &session.Info{
		ID:          "abc",
		PlayerWhite: session.AI,
		PlayerBlack: session.Human,
		State:       session.AwaitingAIResult,
		NextMove:    engine.White,
		Failure:     &session.Failure{Message: "worker failure: timed out", Attempts: 2},
	}

	result := formatInfo(info)

	for _, field := range []string{"Session: abc", "White: ai | Black: human", "awaiting_ai_result", "2 attempts", "retry_ai"} {
		if !strings.Contains(result, field) {
			t.Errorf("Expected '%s' in formatted output, got: %s", field, result)
		}
	}
}

func TestFormatBoard(t *testing.T) {
	board, err := engine.NewDame(engine.DefaultMaxPlies).NewGame()
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}

	result := formatBoard(board)
	for _, field := range []string{"a b c d e f g h", "Next move: Black", "Movable pieces: "} {
		if !strings.Contains(result, field) {
			t.Errorf("Expected '%s' in formatted output, got: %s", field, result)
		}
	}

	result = formatBoard(engine.Board(`not json`))
	if !strings.Contains(result, "Unreadable board") {
		t.Errorf("Expected an unreadable board message, got: %s", result)
	}
}

func TestFormatBoard_OffBoardLastMoves(t *testing.T) {
	board, err := engine.NewDame(engine.DefaultMaxPlies).NewGame()
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	patched := strings.Replace(string(board), `"last_moves":[]`, `"last_moves":[[9,5,8,4]]`, 1)
	if patched == string(board) {
		t.Fatalf("Expected an empty last_moves field in %s", board)
	}

	result := formatBoard(engine.Board(patched))
	if !strings.Contains(result, "Last moves: (9,5)-(8,4)") {
		t.Errorf("Expected raw coordinates for an off-board step, got: %s", result)
	}
}
