package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Form Analysis Model Prompts ---
const FormAnalysisSystemPrompt = "You are a document layout analysis engine. Your task is to detect every line of text and every form field (label/value association) in the supplied document image. You must output your response as a valid JSON array."
const FormAnalysisUserPrompt = `Analyze the supplied document and emit one JSON object per detected entity.

Follow these rules precisely:
1.  Emit a "LINE" entity for every line of visible text, in natural reading order (top to bottom, left to right).
2.  Where a form label and its filled-in value are visually associated (e.g. "Surname: NGUYEN"), additionally emit a "KEY" entity for the label and a "VALUE" entity for the value, and reference the value from the key via "valueIds".
3.  Each JSON object must have exactly these keys:
    - "id": a unique string identifier for the entity.
    - "type": one of "LINE", "KEY", "VALUE".
    - "text": the entity's text content.
    - "confidence": your confidence in the reading, a number between 0 and 1.
    - "valueIds": for "KEY" entities, the ids of the associated "VALUE" entities; an empty array otherwise.
4.  The final output MUST be a single, valid JSON array of these objects. Do not include any text before or after the JSON array.

Example output format:
[
  {"id": "l1", "type": "LINE", "text": "Surname: NGUYEN", "confidence": 0.97, "valueIds": []},
  {"id": "k1", "type": "KEY", "text": "Surname", "confidence": 0.98, "valueIds": ["v1"]},
  {"id": "v1", "type": "VALUE", "text": "NGUYEN", "confidence": 0.95, "valueIds": []}
]`

// --- Field Extraction Model Prompts ---
const ExtractionSystemPrompt = "You are a structured data extraction engine for immigration documents. Given the plain-text transcript of a document and its declared category, you extract the typed fields a visa application needs. You must output your response as a valid JSON array."
const ExtractionUserPrompt = `Extract every field relevant to a visa application from the transcript below.

Follow these rules precisely:
1.  Only extract values that are actually present in the transcript. Never invent or infer a value that is not written there.
2.  Each JSON object must have exactly these keys:
    - "name": the canonical field name in snake_case (e.g. "passport_number", "date_of_birth", "surname").
    - "value": the extracted value, normalized (dates as YYYY-MM-DD, names uppercased as printed).
    - "confidence": your confidence that the value is correct, a number between 0 and 1.
    - "category": the document category the field came from, echoed from the request context.
    - "validationStatus": "ok" if the value looks well-formed for its field type, otherwise "needs_review".
3.  The final output MUST be a single, valid JSON array of these objects. Do not include any text before or after the JSON array.`

// VertexClient holds all pre-configured generative models for the pipeline.
type VertexClient struct {
	FormAnalysisModel *genai.GenerativeModel
	ExtractionModel   *genai.GenerativeModel
	baseClient        *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	safetyOff := []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	// --- Configure the form analysis model ---
	formModel := baseClient.GenerativeModel("gemini-1.5-pro")
	formModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(FormAnalysisSystemPrompt)},
	}
	formModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output. This is a critical setting for this model.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	formModel.SafetySettings = safetyOff

	// --- Configure the field extraction model ---
	extractionModel := baseClient.GenerativeModel("gemini-1.5-pro")
	extractionModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ExtractionSystemPrompt)},
	}
	extractionModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	extractionModel.SafetySettings = safetyOff

	return &VertexClient{
		FormAnalysisModel: formModel,
		ExtractionModel:   extractionModel,
		baseClient:        baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// ResponseText concatenates the text parts of a model response. Responses
// with no candidates or no text parts yield "".
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out += string(txt)
		}
	}
	return out
}
