// Package gateway runs the LLM turn loop: it sends the inspector's message
// with the tool surface attached, executes any tool calls the model makes
// through the dispatcher, and returns the model's final reply.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mkale/sitewalk/internal/tools"
)

const (
	defaultMaxRounds  = 8
	defaultMaxHistory = 40
)

const systemPrompt = `You are a field assistant for property inspectors working through checklists over chat.
Use the provided tools to act on the inspector's messages; never invent job, location or task data yourself.
When a message is a bare number, call numericReply. When it lists conditions for several tasks, call setSubLocationConditions with the raw text.
Relay tool results conversationally and keep replies short. If a tool reports an error, tell the inspector what to do next.`

// Gateway drives model turns for every conversation.
type Gateway struct {
	client     *openai.Client
	dispatcher *tools.Dispatcher
	model      string
	maxRounds  int

	mu      sync.Mutex
	history map[string][]openai.ChatCompletionMessage
}

// GatewayOpts holds parameters for creating a Gateway.
type GatewayOpts struct {
	APIKey     string
	BaseURL    string // optional, for OpenAI-compatible endpoints
	Model      string
	Dispatcher *tools.Dispatcher
	MaxRounds  int // defaults to 8
}

// New creates a Gateway.
func New(opts GatewayOpts) (*Gateway, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gateway: api key is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("gateway: model is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("gateway: dispatcher is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	return &Gateway{
		client:     openai.NewClientWithConfig(cfg),
		dispatcher: opts.Dispatcher,
		model:      opts.Model,
		maxRounds:  maxRounds,
		history:    make(map[string][]openai.ChatCompletionMessage),
	}, nil
}

// RunTurn processes one inbound message for a conversation: the model may
// chain several tool calls before producing its reply. The round count is
// bounded so a confused model cannot loop forever.
func (g *Gateway) RunTurn(ctx context.Context, conversationID, userText string) (string, error) {
	msgs := g.loadHistory(conversationID)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	for round := 0; round < g.maxRounds; round++ {
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    g.model,
			Messages: append(systemMessages(), msgs...),
			Tools:    toolDefinitions(),
		})
		if err != nil {
			return "", fmt.Errorf("gateway: completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("gateway: completion returned no choices")
		}

		choice := resp.Choices[0].Message
		msgs = append(msgs, choice)

		if len(choice.ToolCalls) == 0 {
			g.saveHistory(conversationID, msgs)
			return choice.Content, nil
		}

		for _, tc := range choice.ToolCalls {
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				log.Printf("gateway: %s: bad arguments: %v", tc.Function.Name, err)
				args = map[string]interface{}{}
			}
			result := g.dispatcher.Dispatch(ctx, conversationID, tc.Function.Name, args)
			payload, err := json.Marshal(result)
			if err != nil {
				payload = []byte(`{"success":false,"error":"internal error"}`)
			}
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: tc.ID,
				Content:    string(payload),
			})
		}
	}

	g.saveHistory(conversationID, msgs)
	return "", fmt.Errorf("gateway: tool loop exceeded %d rounds", g.maxRounds)
}

func systemMessages() []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	}}
}

// loadHistory returns a copy of the conversation's bounded message history.
func (g *Gateway) loadHistory(conversationID string) []openai.ChatCompletionMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	h := g.history[conversationID]
	out := make([]openai.ChatCompletionMessage, len(h))
	copy(out, h)
	return out
}

// saveHistory stores the conversation history, trimming the oldest turns
// past the bound. Trimming never splits a tool-call exchange: it advances to
// the next user message so the model always sees well-formed history.
func (g *Gateway) saveHistory(conversationID string, msgs []openai.ChatCompletionMessage) {
	if len(msgs) > defaultMaxHistory {
		cut := len(msgs) - defaultMaxHistory
		for cut < len(msgs) && msgs[cut].Role != openai.ChatMessageRoleUser {
			cut++
		}
		msgs = msgs[cut:]
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history[conversationID] = msgs
}

// numberParam, textParam and friends are the JSON schemas for the tool
// arguments. go-openai accepts any JSON-marshalable value here.
func numberParam(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"number": map[string]interface{}{"type": "integer", "description": desc},
		},
		"required": []string{"number"},
	}
}

func textParam(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{"type": "string", "description": desc},
		},
		"required": []string{"text"},
	}
}

func noParams() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func toolDefinitions() []openai.Tool {
	fns := []openai.FunctionDefinition{
		{Name: "getJobs", Description: "List the inspector's open jobs.", Parameters: noParams()},
		{Name: "selectJob", Description: "Pick a job from the last jobs menu.", Parameters: numberParam("1-based menu position")},
		{Name: "startJob", Description: "Start the job awaiting confirmation.", Parameters: noParams()},
		{Name: "cancelJob", Description: "Abandon the job confirmation and return to the jobs menu.", Parameters: noParams()},
		{Name: "getJobLocations", Description: "List the started job's locations.", Parameters: noParams()},
		{Name: "selectLocation", Description: "Enter a location from the last menu.", Parameters: numberParam("1-based menu position")},
		{Name: "selectSubLocation", Description: "Enter a sub-location from the last menu.", Parameters: numberParam("1-based menu position")},
		{Name: "getSubLocationTasks", Description: "List the tasks in the current scope.", Parameters: noParams()},
		{Name: "selectTask", Description: "Start the per-task flow for one task.", Parameters: numberParam("1-based menu position")},
		{Name: "setTaskCondition", Description: "Record the active task's condition.", Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"condition": map[string]interface{}{"type": "string", "description": "GOOD, FAIR, UNSATISFACTORY, UN_OBSERVABLE or NOT_APPLICABLE (synonyms accepted)"},
			},
			"required": []string{"condition"},
		}},
		{Name: "setSubLocationConditions", Description: "Parse one message rating several tasks at once, e.g. \"1 Good, 2 Fair\".", Parameters: textParam("the inspector's raw message")},
		{Name: "setTaskCause", Description: "Record what caused the active task's condition.", Parameters: textParam("the cause")},
		{Name: "setTaskResolution", Description: "Record how the active task's issue was resolved.", Parameters: textParam("the resolution")},
		{Name: "setSubLocationCauseResolution", Description: "Answer the numbered cause/resolution questions in one message, e.g. \"1: loose hinge, 2: re-tightened\".", Parameters: textParam("the inspector's raw message")},
		{Name: "setTaskRemarks", Description: "Record remarks for the active task.", Parameters: textParam("the remarks")},
		{Name: "setSubLocationRemarks", Description: "Record remarks for the active sub-location and commit its buffered answers.", Parameters: textParam("the remarks")},
		{Name: "attachMedia", Description: "Attach an uploaded photo or video to the current inspection.", Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"url":       map[string]interface{}{"type": "string"},
				"mediaType": map[string]interface{}{"type": "string", "description": "image or video"},
				"caption":   map[string]interface{}{"type": "string"},
			},
			"required": []string{"url"},
		}},
		{Name: "skipMedia", Description: "Skip the photo requirement; only allowed for NOT_APPLICABLE conditions.", Parameters: noParams()},
		{Name: "finalizeTask", Description: "Finish the active task, or leave it incomplete.", Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"completed": map[string]interface{}{"type": "boolean", "description": "true to complete, false to abandon"},
			},
			"required": []string{"completed"},
		}},
		{Name: "markSubLocationComplete", Description: "Validate and complete the active sub-location.", Parameters: noParams()},
		{Name: "markLocationComplete", Description: "Validate and complete the active location.", Parameters: noParams()},
		{Name: "numericReply", Description: "Resolve a bare numeric reply against the last menu or prompt.", Parameters: numberParam("the number the inspector sent")},
	}

	out := make([]openai.Tool, len(fns))
	for i := range fns {
		out[i] = openai.Tool{Type: openai.ToolTypeFunction, Function: &fns[i]}
	}
	return out
}
