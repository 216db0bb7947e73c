package llm

import "gemini-chat-go/internal/model"

// Part is one piece of a content entry. Only text parts are sent.
type Part struct {
	Text string `json:"text"`
}

// Content is one conversation entry in the generateContent schema.
type Content struct {
	Role  string `json:"role"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// GenerationConfig controls sampling. See DefaultGenerationConfig.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// SafetySetting sets the blocking threshold for one harm category.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// GenerateContentRequest is the body of a generateContent call.
// Field order is fixed, so equal inputs marshal to equal bytes.
type GenerateContentRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
	SafetySettings   []SafetySetting  `json:"safetySettings"`
}

const (
	HarmCategoryHarassment       = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"

	BlockMediumAndAbove = "BLOCK_MEDIUM_AND_ABOVE"
)

// DefaultGenerationConfig returns temperature 0.7, topK 40, topP 0.95 and
// 1024 max output tokens.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
	}
}

// DefaultSafetySettings blocks medium-and-above harm in all four categories.
func DefaultSafetySettings() []SafetySetting {
	return []SafetySetting{
		{Category: HarmCategoryHarassment, Threshold: BlockMediumAndAbove},
		{Category: HarmCategoryHateSpeech, Threshold: BlockMediumAndAbove},
		{Category: HarmCategorySexuallyExplicit, Threshold: BlockMediumAndAbove},
		{Category: HarmCategoryDangerousContent, Threshold: BlockMediumAndAbove},
	}
}

// BuildRequest maps a history to the generateContent schema. User turns keep
// role "user"; every other role is sent as "model".
func BuildRequest(history []model.Turn, gen GenerationConfig, safety []SafetySetting) GenerateContentRequest {
	contents := make([]Content, 0, len(history))
	for _, t := range history {
		role := "model"
		if t.Role == model.RoleUser {
			role = "user"
		}
		contents = append(contents, Content{
			Role:  role,
			Parts: []Part{{Text: t.Content}},
		})
	}
	if safety == nil {
		safety = []SafetySetting{}
	}
	return GenerateContentRequest{
		Contents:         contents,
		GenerationConfig: gen,
		SafetySettings:   safety,
	}
}
