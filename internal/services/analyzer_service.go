// internal/services/analyzer_service.go
package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agnarsw/cellar-backend/internal/config"
)

const (
	defaultModel      = "claude-sonnet-4-20250514"
	analysisMaxTokens = 1500
	identifyMaxTokens = 500
)

const analysisPrompt = `Analyze this wine bottle label image and extract as much information as possible.

Return a JSON object with the following fields (use null for any fields you cannot determine):

{
    "name": "Full wine name",
    "producer": "Winery/Producer name",
    "vintage": 2020,  // Year as integer, or null if non-vintage
    "country": "Country of origin",
    "region": "Wine region (e.g., Napa Valley, Burgundy)",
    "appellation": "Specific appellation/AOC/DOC if visible",
    "style": "Red|White|Rosé|Sparkling|Dessert|Fortified",
    "grape_varieties": ["Grape1", "Grape2"],  // Array of grape varieties
    "alcohol_percentage": 13.5,  // As decimal number
    "drinking_window_start": 2024,  // Estimated year to start drinking
    "drinking_window_end": 2030,  // Estimated year by which to drink
    "score": 88,  // Estimated score 0-100 based on producer reputation and vintage
    "description": "Brief description of the wine and producer",
    "tasting_notes": {
        "aromas": ["aroma1", "aroma2"],
        "flavors": ["flavor1", "flavor2"],
        "body": "Light|Medium|Full",
        "tannins": "Low|Medium|High",  // For reds
        "acidity": "Low|Medium|High",
        "finish": "Short|Medium|Long"
    },
    "needs_clarification": false,  // Set to true if you're uncertain about key details
    "clarification_questions": []  // Array of questions if uncertain, e.g. ["Is this wine red or white?"]
}

Important guidelines:
- Only include information you can see or reasonably infer from the label
- For drinking windows, consider the wine style, region, and vintage quality
- For scores, be conservative and base it on typical quality for the producer/region
- If the image is not a wine bottle or label, return {"error": "Not a wine label image"}

CRITICAL - Wine style clarification:
- Many Burgundy appellations (Santenay, Meursault, Pommard, Gevrey-Chambertin, Bourgogne, etc.) can be BOTH red and white
- Many producers make both red AND white versions with nearly identical labels
- If you CANNOT see the actual wine color through the bottle, AND the appellation/region produces both styles, you MUST:
  1. Set "needs_clarification": true
  2. Add "Is this wine red or white?" to clarification_questions
  3. Set "style": null (do not guess!)
- Only set the style confidently if you can see the wine color, or if the label explicitly states "Blanc", "Rouge", "White", "Red", or lists a grape that's clearly one color (e.g., Chardonnay = white, Pinot Noir = typically red)
- When in doubt, ASK. It's better to ask than to guess wrong.

Return ONLY the JSON object, no additional text.`

const identifyPrompt = `Look at this wine bottle image and identify the wine.

Return a JSON object with just the key identifying information:

{
    "name": "Full wine name",
    "producer": "Winery/Producer name",
    "vintage": 2020  // Year as integer, or null if non-vintage
}

If you cannot identify the wine, return {"error": "Cannot identify wine"}

Return ONLY the JSON object, no additional text.`

// Analysis is the decoded result of a label extraction. Failures of the
// extraction itself (bad image, API trouble, unparseable reply) travel
// in-band under the "error" key rather than as Go errors: to the rest of the
// app they are ordinary business outcomes, not infrastructure faults.
type Analysis map[string]interface{}

// ErrorMessage reports the in-band extraction error. The presence of the
// "error" key alone marks the result as failed, whatever the value holds;
// the message is its string form when there is one.
func (a Analysis) ErrorMessage() (string, bool) {
	v, present := a["error"]
	if !present {
		return "", false
	}
	msg, _ := v.(string)
	return msg, true
}

func (a Analysis) NeedsClarification() bool {
	return coerceBool(a["needs_clarification"])
}

// ImageInput carries a label photo either as a file path or as base64 data.
// When only a path is given the file is read and the media type inferred
// from its extension.
type ImageInput struct {
	Path      string
	Base64    string
	MediaType string
}

func (img ImageInput) resolve() (data, mediaType string, errResult Analysis) {
	if img.Path == "" && img.Base64 == "" {
		return "", "", Analysis{"error": "No image provided"}
	}

	data = img.Base64
	mediaType = img.MediaType

	if img.Path != "" && data == "" {
		raw, err := os.ReadFile(img.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", "", Analysis{"error": fmt.Sprintf("Image file not found: %s", img.Path)}
			}
			return "", "", Analysis{"error": fmt.Sprintf("Error reading image: %v", err)}
		}
		data = base64.StdEncoding.EncodeToString(raw)
		mediaType = MediaTypeForFilename(img.Path)
	}

	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return data, mediaType, nil
}

// MediaTypeForFilename maps an image filename to its MIME type, defaulting
// to JPEG for anything unrecognized.
func MediaTypeForFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return "image/jpeg"
}

// LabelAnalyzer extracts wine facts from bottle photographs.
type LabelAnalyzer interface {
	// AnalyzeImage runs the full label analysis (every field the cellar tracks).
	AnalyzeImage(ctx context.Context, img ImageInput) Analysis
	// IdentifyImage runs the cheaper identification pass (name, producer, vintage).
	IdentifyImage(ctx context.Context, img ImageInput) Analysis
}

// AnthropicAnalyzer implements LabelAnalyzer against the Anthropic Messages
// API. The client is built once at construction; a missing API key is a
// startup error, not a per-request surprise.
type AnthropicAnalyzer struct {
	client anthropic.Client
	model  string
}

func NewAnthropicAnalyzer(cfg config.AnthropicConfig, opts ...option.RequestOption) (*AnthropicAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	options := append([]option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}, opts...)

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &AnthropicAnalyzer{
		client: anthropic.NewClient(options...),
		model:  model,
	}, nil
}

func (a *AnthropicAnalyzer) AnalyzeImage(ctx context.Context, img ImageInput) Analysis {
	text, errResult := a.call(ctx, img, analysisPrompt, analysisMaxTokens)
	if errResult != nil {
		return errResult
	}

	result, err := parseAnalysisJSON(text)
	if err != nil {
		return Analysis{
			"error":        fmt.Sprintf("Failed to parse AI response: %v", err),
			"raw_response": text,
		}
	}
	return result
}

func (a *AnthropicAnalyzer) IdentifyImage(ctx context.Context, img ImageInput) Analysis {
	text, errResult := a.call(ctx, img, identifyPrompt, identifyMaxTokens)
	if errResult != nil {
		return errResult
	}

	result, err := parseAnalysisJSON(text)
	if err != nil {
		return Analysis{"error": fmt.Sprintf("Failed to parse AI response: %v", err)}
	}
	return result
}

func (a *AnthropicAnalyzer) call(ctx context.Context, img ImageInput, prompt string, maxTokens int64) (string, Analysis) {
	data, mediaType, errResult := img.resolve()
	if errResult != nil {
		return "", errResult
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, data),
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return "", Analysis{"error": fmt.Sprintf("API error: %v", err)}
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", Analysis{"error": "API error: empty response content"}
	}
	return text, nil
}

func parseAnalysisJSON(text string) (Analysis, error) {
	var result Analysis
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// stripCodeFences unwraps a reply of the form ```json\n{...}\n``` down to
// the JSON body. Models wrap output in markdown fences despite instructions
// not to.
func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	var jsonLines []string
	inJSON := false
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "```") && !inJSON:
			inJSON = true
		case strings.HasPrefix(line, "```"):
			return strings.Join(jsonLines, "\n")
		case inJSON:
			jsonLines = append(jsonLines, line)
		}
	}
	return strings.Join(jsonLines, "\n")
}
