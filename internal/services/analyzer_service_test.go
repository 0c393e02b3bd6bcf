// internal/services/analyzer_service_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnarsw/cellar-backend/internal/config"
)

const messagesEndpoint = "https://api.anthropic.com/v1/messages"

// messagesResponse builds a minimal Messages API reply whose single text
// block carries the given content.
func messagesResponse(t *testing.T, text string) string {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       defaultModel,
		"stop_reason": "end_turn",
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"usage": map[string]int{"input_tokens": 100, "output_tokens": 50},
	})
	require.NoError(t, err)
	return string(body)
}

func newMockedAnalyzer(t *testing.T) *AnthropicAnalyzer {
	t.Helper()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	analyzer, err := NewAnthropicAnalyzer(
		config.AnthropicConfig{APIKey: "test-key", TimeoutSeconds: 5},
		option.WithHTTPClient(client),
		option.WithMaxRetries(0),
	)
	require.NoError(t, err)
	return analyzer
}

func TestNewAnthropicAnalyzerRequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicAnalyzer(config.AnthropicConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestAnalysisErrorMessagePresence(t *testing.T) {
	msg, failed := Analysis{"error": "Cannot identify wine"}.ErrorMessage()
	assert.True(t, failed)
	assert.Equal(t, "Cannot identify wine", msg)

	// The key alone marks failure, whatever value it carries
	msg, failed = Analysis{"error": ""}.ErrorMessage()
	assert.True(t, failed)
	assert.Equal(t, "", msg)

	_, failed = Analysis{"error": float64(500)}.ErrorMessage()
	assert.True(t, failed)

	_, failed = Analysis{"name": "Barolo"}.ErrorMessage()
	assert.False(t, failed)
}

func TestAnalyzeImageParsesFencedJSON(t *testing.T) {
	analyzer := newMockedAnalyzer(t)
	httpmock.RegisterResponder("POST", messagesEndpoint,
		httpmock.NewStringResponder(200, messagesResponse(t,
			"```json\n{\"name\": \"Château Margaux\", \"vintage\": 2015}\n```")))

	result := analyzer.AnalyzeImage(context.Background(), ImageInput{Base64: "aGkK", MediaType: "image/jpeg"})

	_, failed := result.ErrorMessage()
	assert.False(t, failed)
	assert.Equal(t, "Château Margaux", result["name"])
	assert.Equal(t, float64(2015), result["vintage"])
}

func TestAnalyzeImageKeepsRawResponseOnParseFailure(t *testing.T) {
	analyzer := newMockedAnalyzer(t)
	httpmock.RegisterResponder("POST", messagesEndpoint,
		httpmock.NewStringResponder(200, messagesResponse(t,
			"Sorry, I cannot read this label.")))

	result := analyzer.AnalyzeImage(context.Background(), ImageInput{Base64: "aGkK"})

	msg, failed := result.ErrorMessage()
	assert.True(t, failed)
	assert.Contains(t, msg, "Failed to parse AI response")
	assert.Equal(t, "Sorry, I cannot read this label.", result["raw_response"])
}

func TestIdentifyImageOmitsRawResponseOnParseFailure(t *testing.T) {
	analyzer := newMockedAnalyzer(t)
	httpmock.RegisterResponder("POST", messagesEndpoint,
		httpmock.NewStringResponder(200, messagesResponse(t, "not json")))

	result := analyzer.IdentifyImage(context.Background(), ImageInput{Base64: "aGkK"})

	_, failed := result.ErrorMessage()
	assert.True(t, failed)
	assert.NotContains(t, result, "raw_response")
}

func TestAnalyzeImageWrapsAPIFailure(t *testing.T) {
	analyzer := newMockedAnalyzer(t)
	httpmock.RegisterResponder("POST", messagesEndpoint,
		httpmock.NewStringResponder(500,
			`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))

	result := analyzer.AnalyzeImage(context.Background(), ImageInput{Base64: "aGkK"})

	msg, failed := result.ErrorMessage()
	assert.True(t, failed)
	assert.Contains(t, msg, "API error:")
}

func TestAnalyzeImageWithoutImage(t *testing.T) {
	analyzer := newMockedAnalyzer(t)

	result := analyzer.AnalyzeImage(context.Background(), ImageInput{})

	msg, _ := result.ErrorMessage()
	assert.Equal(t, "No image provided", msg)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestAnalyzeImageMissingFile(t *testing.T) {
	analyzer := newMockedAnalyzer(t)

	result := analyzer.AnalyzeImage(context.Background(), ImageInput{Path: "/no/such/label.jpg"})

	msg, _ := result.ErrorMessage()
	assert.Equal(t, "Image file not found: /no/such/label.jpg", msg)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"name": "x"}`, `{"name": "x"}`},
		{"json fence", "```json\n{\"name\": \"x\"}\n```", "{\"name\": \"x\"}"},
		{"bare fence", "```\n{\"name\": \"x\"}\n```", "{\"name\": \"x\"}"},
		{"trailing prose ignored", "```json\n{}\n```\nHope that helps!", "{}"},
		{"unterminated fence", "```json\n{\"a\": 1}", "{\"a\": 1}"},
		{"multiline body", "```json\n{\n  \"a\": 1\n}\n```", "{\n  \"a\": 1\n}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.input))
		})
	}
}

func TestMediaTypeForFilename(t *testing.T) {
	assert.Equal(t, "image/jpeg", MediaTypeForFilename("label.JPG"))
	assert.Equal(t, "image/png", MediaTypeForFilename("label.png"))
	assert.Equal(t, "image/webp", MediaTypeForFilename("label.webp"))
	assert.Equal(t, "image/gif", MediaTypeForFilename("label.gif"))
	assert.Equal(t, "image/jpeg", MediaTypeForFilename("label"))
}
