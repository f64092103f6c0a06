package llm

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// TokenStats tracks token usage during execution
type TokenStats struct {
	InputTokens     int
	OutputTokens    int
	TotalTokens     int
	CacheReadTokens int
}

// OutputHandler handles parsed stream events
type OutputHandler interface {
	OnToolUse(name string)
	OnText(text string)
	OnDone(result string)
	OnTokenUsage(usage TokenStats)
}

// StreamEvent represents a single event from Claude's stream-json output
type StreamEvent struct {
	Type    string          `json:"type"`
	Message *MessageContent `json:"message,omitempty"`
	Result  string          `json:"result,omitempty"`
}

// MessageContent represents the message field in stream events
type MessageContent struct {
	Content []ContentBlock `json:"content,omitempty"`
	Usage   *UsageBlock    `json:"usage,omitempty"`
}

// ContentBlock represents a content block (text or tool_use)
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Name string `json:"name,omitempty"` // for tool_use
}

// UsageBlock represents token usage data from Claude's output
type UsageBlock struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_input_tokens"`
	CacheReadTokens     int `json:"cache_read_input_tokens"`
}

// ParseStream reads backend output and calls the handler. Lines that are
// not stream-json events are treated as plain text.
func ParseStream(reader io.Reader, handler OutputHandler) error {
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for large JSON lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		var event StreamEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil || event.Type == "" {
			handler.OnText(line)
			continue
		}

		switch event.Type {
		case "assistant":
			if event.Message == nil {
				continue
			}
			if event.Message.Usage != nil {
				handler.OnTokenUsage(TokenStats{
					InputTokens:     event.Message.Usage.InputTokens,
					OutputTokens:    event.Message.Usage.OutputTokens,
					CacheReadTokens: event.Message.Usage.CacheReadTokens,
				})
			}
			for _, content := range event.Message.Content {
				switch content.Type {
				case "tool_use":
					handler.OnToolUse(content.Name)
				case "text":
					handler.OnText(content.Text)
				}
			}
		case "result":
			handler.OnDone(event.Result)
		}
	}

	return scanner.Err()
}

// Collector accumulates a backend's answer. The final "result" event wins;
// without one the concatenated text is the answer.
type Collector struct {
	progress OutputHandler

	mu         sync.Mutex
	text       strings.Builder
	result     string
	done       bool
	tools      []string
	tokenStats TokenStats
}

// NewCollector creates a collector that forwards events to progress when non-nil
func NewCollector(progress OutputHandler) *Collector {
	return &Collector{progress: progress}
}

func (c *Collector) OnToolUse(name string) {
	c.mu.Lock()
	c.tools = append(c.tools, name)
	c.mu.Unlock()
	if c.progress != nil {
		c.progress.OnToolUse(name)
	}
}

func (c *Collector) OnText(text string) {
	c.mu.Lock()
	if c.text.Len() > 0 {
		c.text.WriteString("\n")
	}
	c.text.WriteString(text)
	c.mu.Unlock()
	if c.progress != nil {
		c.progress.OnText(text)
	}
}

func (c *Collector) OnDone(result string) {
	c.mu.Lock()
	c.result = result
	c.done = true
	c.mu.Unlock()
	if c.progress != nil {
		c.progress.OnDone(result)
	}
}

func (c *Collector) OnTokenUsage(usage TokenStats) {
	c.mu.Lock()
	c.tokenStats.InputTokens += usage.InputTokens
	c.tokenStats.OutputTokens += usage.OutputTokens
	c.tokenStats.CacheReadTokens += usage.CacheReadTokens
	c.tokenStats.TotalTokens = c.tokenStats.InputTokens + c.tokenStats.OutputTokens
	c.mu.Unlock()
	if c.progress != nil {
		c.progress.OnTokenUsage(usage)
	}
}

// Result returns the final answer
func (c *Collector) Result() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return c.result
	}
	return c.text.String()
}

// Tools returns the names of tools used, in order
func (c *Collector) Tools() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.tools...)
}

func (c *Collector) TokenStats() TokenStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenStats
}

// ConsoleHandler prints a one-line timestamped summary of each event
type ConsoleHandler struct {
	out       io.Writer
	toolCount int
}

func NewConsoleHandler(out io.Writer) *ConsoleHandler {
	return &ConsoleHandler{out: out}
}

func (h *ConsoleHandler) OnToolUse(name string) {
	h.toolCount++
}

func (h *ConsoleHandler) OnText(text string) {
	timestamp := time.Now().Format("[15:04:05]")
	truncated := truncateText(text, 400)

	if h.toolCount > 0 {
		fmt.Fprintf(h.out, "%s [Tools: %d] %s\n", timestamp, h.toolCount, truncated)
		h.toolCount = 0
	} else {
		fmt.Fprintf(h.out, "%s %s\n", timestamp, truncated)
	}
}

func (h *ConsoleHandler) OnDone(result string) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Fprintf(h.out, "%s [Done] %s\n", timestamp, truncateText(result, 200))
}

func (h *ConsoleHandler) OnTokenUsage(usage TokenStats) {}

func truncateText(s string, max int) string {
	s = cleanText(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func cleanText(s string) string {
	// Replace newlines with spaces for single-line output
	s = strings.ReplaceAll(s, "\n", " ")
	// Collapse multiple spaces
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}
