package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/damegame/game/engine"
	"github.com/wricardo/mcp-training/damegame/game/session"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Dame Game Server",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Dame (checkers) - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Either side of a game can be played by a human (you) or by the server's AI.
Black moves first. Coordinates are 0-based: x is the column (a-h), y the row (1-8).

AVAILABLE TOOLS:
- new_game: Start a game, choosing "human" or "ai" for each color
- select_piece: List the legal destinations of a piece
- move_piece: Move one of your pieces
- poll_update: Fetch the next board update (your move, then the AI's reply)
- session_info: Whose turn it is, whether the AI is thinking, last AI failure
- list_sessions: List all games
- retry_ai: Ask the AI to move again after a failed search
- game_rules: Rules of the game

The AI answers asynchronously: after move_piece, call poll_update until the AI's board arrives.`),
	)

	// Register all tools
	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID returned by new_game",
	}
}

func coordinateProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"minimum":     0,
		"maximum":     7,
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "new_game",
		Description: "Start a new game. Each color is played by \"human\" or \"ai\".",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"player_white": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"human", "ai"},
					"description": "Who plays white",
				},
				"player_black": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"human", "ai"},
					"description": "Who plays black (black moves first)",
				},
			},
			Required: []string{"player_white", "player_black"},
		},
	}, c.handleNewGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "session_info",
		Description: "Describe a game: state, side to move, pending AI search and last failure",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleSessionInfo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all games",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_piece",
		Description: "List the squares the piece at (x, y) can move to",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"x":          coordinateProperty("Column of the piece"),
				"y":          coordinateProperty("Row of the piece"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleSelectPiece)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_piece",
		Description: "Move the piece at (x, y) to (dx, dy)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"x":          coordinateProperty("Column of the piece"),
				"y":          coordinateProperty("Row of the piece"),
				"dx":         coordinateProperty("Destination column"),
				"dy":         coordinateProperty("Destination row"),
			},
			Required: []string{"session_id", "x", "y", "dx", "dy"},
		},
	}, c.handleMovePiece)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "poll_update",
		Description: "Fetch the oldest board update not yet delivered",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handlePollUpdate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "retry_ai",
		Description: "Dispatch the AI again after its last search failed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleRetryAI)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the rules of Dame and how coordinates work",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Argument helpers

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, name string) (string, error) {
	v, _ := args[name].(string)
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

// intArg accepts JSON numbers as well as numeric strings
func intArg(args map[string]interface{}, name string) (int, error) {
	switch v := args[name].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("%s is required", name)
	default:
		return 0, fmt.Errorf("%s must be an integer", name)
	}
}

func intArgs(args map[string]interface{}, names ...string) ([]int, error) {
	values := make([]int, len(names))
	for i, name := range names {
		v, err := intArg(args, name)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// Tool handlers

func (c *Client) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	white, err := stringArg(args, "player_white")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	black, err := stringArg(args, "player_black")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var board json.RawMessage
	err = c.apiCall(ctx, "POST", fmt.Sprintf("/new/%s/%s", white, black), nil, &board)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var ids struct {
		UID         string `json:"uid"`
		PlayerWhite string `json:"player_white"`
		PlayerBlack string `json:"player_black"`
	}
	json.Unmarshal(board, &ids)

	result := fmt.Sprintf("Created session: %s\nWhite: %s | Black: %s\n\n%s",
		ids.UID, ids.PlayerWhite, ids.PlayerBlack, formatBoard(engine.Board(board)))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleSessionInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := stringArg(arguments(request), "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info session.Info
	err = c.apiCall(ctx, "GET", fmt.Sprintf("/sessions/%s", sessionID), nil, &info)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatInfo(&info)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int             `json:"count"`
		Sessions []*session.Info `json:"sessions"`
	}

	err := c.apiCall(ctx, "GET", "/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&result, "- %s (white: %s, black: %s, state: %s, created: %s)\n",
			s.ID, s.PlayerWhite, s.PlayerBlack, s.State, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleSelectPiece(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := stringArg(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	xy, err := intArgs(args, "x", "y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		ValidMoves []engine.Point `json:"valid_moves"`
	}
	err = c.apiCall(ctx, "GET", fmt.Sprintf("/select/%s/%d/%d", sessionID, xy[0], xy[1]), nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoves(xy[0], xy[1], response.ValidMoves)), nil
}

func (c *Client) handleMovePiece(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := stringArg(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := intArgs(args, "x", "y", "dx", "dy")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var board json.RawMessage
	path := fmt.Sprintf("/move/%s/%d/%d/%d/%d", sessionID, m[0], m[1], m[2], m[3])
	if err := c.apiCall(ctx, "POST", path, nil, &board); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	step := engine.Step{X: m[0], Y: m[1], DX: m[2], DY: m[3]}
	result := fmt.Sprintf("✓ Moved %s\n\n%s", step, formatBoard(engine.Board(board)))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handlePollUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := stringArg(arguments(request), "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var board map[string]json.RawMessage
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/get/%s", sessionID), nil, &board); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(board) == 0 {
		return mcp.NewToolResultText("No new board yet. If the AI is thinking, poll again shortly."), nil
	}

	data, err := json.Marshal(board)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBoard(engine.Board(data))), nil
}

func (c *Client) handleRetryAI(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := stringArg(arguments(request), "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info session.Info
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/retry/%s", sessionID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatInfo(&info)), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := `Dame (checkers) - Rules

BOARD:
8x8 squares. x is the column (0-7, shown as a-h), y the row (0-7, shown as 1-8).
White starts on rows 1-3 and moves towards row 8; black starts on rows 6-8 and
moves towards row 1. Black moves first.

PIECES:
• w / b - normal white / black piece, moves one square diagonally forward
• W / B - dame (king), moves one square diagonally in any direction
• .     - empty square

CAPTURES:
• Jump diagonally over an adjacent opposing piece onto the empty square behind it
• Captures are mandatory: if any capture exists, only capturing pieces may move
• After a capture, the same piece must keep capturing while it can; you stay on turn

PROMOTION:
A normal piece reaching the far row becomes a dame. Promotion ends the turn.

END OF GAME:
A player who cannot move loses. A game that runs too long is a draw.

WORKFLOW:
1. new_game with your color as "human"
2. select_piece to see legal destinations
3. move_piece, then poll_update until the AI's board arrives (next_move is yours again)`

	return mcp.NewToolResultText(rules), nil
}

// Formatting helpers

func formatBoard(board engine.Board) string {
	var result strings.Builder

	diagram, err := engine.Render(board)
	if err != nil {
		return fmt.Sprintf("Unreadable board: %v", err)
	}
	result.WriteString(diagram)

	status, err := engine.ReadStatus(board)
	if err == nil {
		result.WriteString("\n")
		if status.Finished() {
			if status.Winner == engine.Draw {
				result.WriteString("🤝 DRAW")
			} else {
				fmt.Fprintf(&result, "🏁 GAME OVER - %s wins", status.Winner)
			}
		} else {
			fmt.Fprintf(&result, "Next move: %s", status.NextMove)
		}
		result.WriteString("\n")
	}

	if last, err := engine.LastMoves(board); err == nil && len(last) > 0 {
		steps := make([]string, len(last))
		for i, s := range last {
			steps[i] = s.String()
		}
		fmt.Fprintf(&result, "Last moves: %s\n", strings.Join(steps, ", "))
	}

	var extra struct {
		Movable []engine.Point `json:"valid_pieces_to_move"`
	}
	if json.Unmarshal(board, &extra) == nil && len(extra.Movable) > 0 {
		result.WriteString("Movable pieces: ")
		result.WriteString(formatPoints(extra.Movable))
		result.WriteString("\n")
	}

	return result.String()
}

func formatMoves(x, y int, moves []engine.Point) string {
	if len(moves) == 0 {
		return fmt.Sprintf("The piece at (%d,%d) has no legal moves.", x, y)
	}
	return fmt.Sprintf("Legal destinations for (%d,%d): %s", x, y, formatPoints(moves))
}

func formatPoints(points []engine.Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("(%d,%d)", p.X, p.Y)
	}
	return strings.Join(parts, " ")
}

func formatInfo(info *session.Info) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Session: %s\nWhite: %s | Black: %s\nState: %s\n",
		info.ID, info.PlayerWhite, info.PlayerBlack, info.State)

	if info.State == session.Finished {
		fmt.Fprintf(&result, "Winner: %s\n", info.Winner)
	} else {
		fmt.Fprintf(&result, "Next move: %s\n", info.NextMove)
	}
	if info.PendingAI {
		result.WriteString("AI is thinking...\n")
	}
	fmt.Fprintf(&result, "Undelivered updates: %d\n", info.Queued)
	if info.Failure != nil {
		fmt.Fprintf(&result, "⚠️ Last AI failure (%d attempts): %s\nUse retry_ai to try again.\n",
			info.Failure.Attempts, info.Failure.Message)
	}
	return result.String()
}
