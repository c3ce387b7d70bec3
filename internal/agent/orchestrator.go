// Package agent drives the conversation loop: it sends history to the
// model, executes requested tools from an explicit work stack, and keeps
// the history bounded.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kvit-s/kvit-agent/internal/fileio"
	"github.com/kvit-s/kvit-agent/internal/llm"
	"github.com/kvit-s/kvit-agent/internal/tools"
	"github.com/kvit-s/kvit-agent/internal/ui"
)

// ErrTurnLimitReached signals a clean end of the conversation.
var ErrTurnLimitReached = errors.New("turn limit reached")

// MessagesClient is the API surface the orchestrator needs.
type MessagesClient interface {
	Messages(ctx context.Context, messages []llm.Message) (*llm.MessagesResponse, error)
}

// ToolExecutor dispatches one tool call.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, input json.RawMessage) (string, error)
}

// toolTask is one pending tool call on the work stack.
type toolTask struct {
	toolUseID string
	name      string
	input     json.RawMessage
}

// Options configures an Orchestrator.
type Options struct {
	Client      MessagesClient
	Executor    ToolExecutor
	Writer      *ui.Writer
	Logger      *Logger
	MaxTurns    int
	MaxHistory  int
	TurnTimeout time.Duration
}

// Orchestrator owns the conversation state. Not safe for concurrent use;
// one conversation is one goroutine.
type Orchestrator struct {
	client      MessagesClient
	executor    ToolExecutor
	writer      *ui.Writer
	logger      *Logger
	history     []llm.Message
	maxTurns    int
	maxHistory  int
	turnTimeout time.Duration
	turnCount   int
}

func New(opts Options) *Orchestrator {
	if opts.Writer == nil {
		opts.Writer = ui.NewWriter(true)
	}
	if opts.Logger == nil {
		opts.Logger = NopLogger()
	}
	if opts.MaxTurns == 0 {
		opts.MaxTurns = 10
	}
	if opts.MaxHistory == 0 {
		opts.MaxHistory = 50
	}
	if opts.TurnTimeout == 0 {
		opts.TurnTimeout = 180 * time.Second
	}
	return &Orchestrator{
		client:      opts.Client,
		executor:    opts.Executor,
		writer:      opts.Writer,
		logger:      opts.Logger,
		maxTurns:    opts.MaxTurns,
		maxHistory:  opts.MaxHistory,
		turnTimeout: opts.TurnTimeout,
	}
}

// History returns the conversation as sent to the API.
func (o *Orchestrator) History() []llm.Message { return o.history }

// TurnCount returns how many user turns have completed or started.
func (o *Orchestrator) TurnCount() int { return o.turnCount }

// Seed prepends a system-role message to the history. Useful for framing
// context that trimming must preserve.
func (o *Orchestrator) Seed(text string) {
	o.history = append([]llm.Message{{
		Role:    llm.RoleSystem,
		Content: []llm.ContentBlock{llm.TextBlock(text)},
	}}, o.history...)
}

// RunTurn processes one user input to completion: model response, any
// chain of tool calls, and the final assistant text. The whole turn runs
// under one deadline. Tool results produced before a mid-turn failure stay
// in the history; filesystem effects are not rolled back.
func (o *Orchestrator) RunTurn(ctx context.Context, userInput string) error {
	if o.turnCount >= o.maxTurns {
		return ErrTurnLimitReached
	}
	o.turnCount++
	o.logger.TurnStarted(o.turnCount, len(o.history))

	ctx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	o.history = append(o.history, llm.UserText(userInput))

	resp, err := o.converse(ctx)
	if err != nil {
		return fmt.Errorf("model call: %w", err)
	}
	stack := o.ingest(resp, nil)

	// Explicit LIFO stack instead of recursion: a nested tool call that a
	// result provokes is fully resolved before earlier siblings run.
	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		o.logger.ToolDispatched(task.name, task.toolUseID, len(stack))

		result, execErr := o.executor.Execute(ctx, task.name, task.input)
		isError := execErr != nil
		if isError {
			result = fmt.Sprintf("Error: %v", execErr)
		}
		o.writer.ToolResult(task.name, result, isError)

		o.history = append(o.history, llm.Message{
			Role:    llm.RoleUser,
			Content: []llm.ContentBlock{llm.ToolResultBlock(task.toolUseID, result, isError)},
		})

		if isError && isAbortError(execErr) {
			o.trimHistory()
			return fmt.Errorf("tool %s: %w", task.name, execErr)
		}

		resp, err := o.converse(ctx)
		if err != nil {
			o.trimHistory()
			return fmt.Errorf("model call after tool result: %w", err)
		}
		stack = o.ingest(resp, stack)
	}

	o.trimHistory()
	return nil
}

// converse sends the history to the model and logs the call outcome.
func (o *Orchestrator) converse(ctx context.Context) (*llm.MessagesResponse, error) {
	start := time.Now()
	resp, err := o.client.Messages(ctx, o.history)
	if err != nil {
		o.logger.Error("model call failed", err)
		return nil, err
	}
	o.logger.APICall(resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens, time.Since(start))
	return resp, nil
}

// ingest records an assistant response in the history, surfaces its text,
// and pushes its tool calls onto the stack. Siblings are pushed in reverse
// so the first block in the response is popped first.
func (o *Orchestrator) ingest(resp *llm.MessagesResponse, stack []toolTask) []toolTask {
	o.history = append(o.history, llm.Message{
		Role:    llm.RoleAssistant,
		Content: resp.Content,
	})

	if text := resp.TextContent(); text != "" {
		o.writer.Assistant(text)
	}

	uses := resp.ToolUses()
	for _, use := range uses {
		o.writer.ToolCall(use.Name, use.Input)
	}
	for i := len(uses) - 1; i >= 0; i-- {
		stack = append(stack, toolTask{
			toolUseID: uses[i].ID,
			name:      uses[i].Name,
			input:     uses[i].Input,
		})
	}
	return stack
}

// trimHistory caps the history at maxHistory messages. The run of leading
// system messages survives, then the most recent messages; a contiguous
// middle block is dropped. Trimming an already-short history is a no-op,
// so the operation is idempotent.
func (o *Orchestrator) trimHistory() {
	if len(o.history) <= o.maxHistory {
		return
	}

	lead := 0
	for lead < len(o.history) && o.history[lead].Role == llm.RoleSystem {
		lead++
	}
	keepRecent := o.maxHistory - lead
	if keepRecent <= 0 {
		// System messages alone exceed the cap; nothing sensible to drop.
		return
	}

	before := len(o.history)
	trimmed := make([]llm.Message, 0, o.maxHistory)
	trimmed = append(trimmed, o.history[:lead]...)
	trimmed = append(trimmed, o.history[before-keepRecent:]...)
	o.history = trimmed
	o.logger.HistoryTrimmed(before, len(o.history))
}

func isAbortError(err error) bool {
	var unknownTool *tools.UnknownToolError
	var decodeErr *fileio.DecodeError
	return errors.As(err, &unknownTool) || errors.As(err, &decodeErr)
}
