package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// --- Vision Model Prompts ---
const VisionSystemPrompt = "You are a resume OCR engine. You read the pages of a PDF resume and transcribe their content into a single structured JSON document. Accuracy and completeness are of utmost importance; never invent information that is not on the page."
const VisionUserPrompt = `You are given the pages of a PDF resume. Transcribe their content into a single JSON document.

Regarding the following JSON schema, you MUST:
- Comply strictly with the provided JSON schema.
- DO NOT add extra fields not defined in the schema.
- Use null for any field the resume does not mention.
- The final output must be a single valid JSON object, with no backticks, code blocks, or explanations.

### JSON SCHEMA:
{
  "personal_information": {
    "name", "surname", "date_of_birth", "country", "city", "address",
    "zip_code", "phone_prefix", "phone", "email", "github", "linkedin"
    — each a string or null
  },
  "education_details": [
    {
      "education_level", "institution", "field_of_study",
      "final_evaluation_grade", "start_date", "year_of_completion"
      — each a string or null;
      "exam": { "<exam name>": "<exam grade>", ... }
    }
  ],
  "experience_details": [
    {
      "position", "company", "employment_period", "location", "industry"
      — each a string or null;
      "key_responsibilities": [ "..." ],
      "skills_acquired": [ "..." ],
      "links": [ "..." ]
    }
  ],
  "projects": [ { "name", "description", "link" } ],
  "achievements": [ { "name", "description" } ],
  "certifications": [ { "name", "description" } ],
  "languages": [ { "language", "proficiency" } ],
  "interests": [ "..." ],
  "availability": { "notice_period": string or null },
  "salary_expectations": { "salary_range_usd": string or null },
  "self_identification": { "gender", "pronouns", "veteran", "disability", "ethnicity", "hispanic_or_latino" — "Yes", "No" or null },
  "legal_authorization": {
    "eu_work_authorization", "us_work_authorization", "requires_us_visa",
    "legally_allowed_to_work_in_us", "requires_us_sponsorship",
    "requires_eu_visa", "legally_allowed_to_work_in_eu",
    "requires_eu_sponsorship", "canada_work_authorization",
    "requires_canada_visa", "legally_allowed_to_work_in_canada",
    "requires_canada_sponsorship", "uk_work_authorization",
    "requires_uk_visa", "legally_allowed_to_work_in_uk",
    "requires_uk_sponsorship" — "Yes", "No" or null
  },
  "work_preferences": {
    "remote_work", "in_person_work", "open_to_relocation",
    "willing_to_complete_assessments", "willing_to_undergo_drug_tests",
    "willing_to_undergo_background_checks" — "Yes", "No" or null
  }
}

### Final Output:
Only output the final JSON resume. Do not output a markdown transcription or any additional text.`

// --- Reconciler Model Prompts ---
const ReconcilerSystemPrompt = "You are a resume reconciliation engine. You merge OCR outputs that describe the same resume into one coherent JSON document. You must output a single valid JSON object and nothing else."
const reconcilerPromptTemplate = `You are provided with three extraction outputs from the same resume:

1. **STRUCTURED-DOCUMENT OCR** (layout-aware text):
%s

2. **VISION OCR** (best-effort structured JSON):
%s

3. **EXTRACTED LINKS**:
%s

Instructions:
- Combine them into a single well-structured JSON resume following the vision output's JSON structure.
- Where both sources mention the same field, prefer the structured-document text for its wording.
- Where the structured-document text left a field empty, use the vision output's interpretation.
- Integrate the extracted links into relevant URL-bearing fields that are not already populated; do not add a separate links section.
- In the projects section, include project titles and their corresponding links.
- Do not add fields not part of the JSON structure.
- Provide only the JSON code, without explanations or markdown formatting.`

// --- Repair Model Prompts ---
const RepairSystemPrompt = "You are a JSON repair tool. You receive text that was supposed to be a JSON resume and you return the same content as a single valid JSON object. You never add information and never output anything except JSON."
const repairPromptTemplate = `The following text was supposed to be a single valid JSON resume but failed to parse. Fix this JSON.

- Keep every fact already present; fix only structure, quoting and delimiters.
- If the text is not JSON at all, structure its content into the resume JSON shape (personal_information, education_details, experience_details, projects, achievements, certifications, languages, interests, availability, salary_expectations, self_identification, legal_authorization, work_preferences).
- If hyperlinks are listed below, integrate them into relevant URL-bearing fields that are still empty.
- Return ONLY the valid JSON object.

### TEXT:
%s

### EXTRACTED LINKS:
%s`

// ReconcilerPrompt renders the fixed merge instruction for one run.
func ReconcilerPrompt(primary, secondary string, links []string) string {
	return fmt.Sprintf(reconcilerPromptTemplate, primary, secondary, linksBlock(links))
}

// RepairPrompt renders the single re-query instruction for near-JSON text.
func RepairPrompt(raw string, links []string) string {
	return fmt.Sprintf(repairPromptTemplate, raw, linksBlock(links))
}

func linksBlock(links []string) string {
	if len(links) == 0 {
		return "No links found"
	}
	return strings.Join(links, "\n")
}

// VertexClient holds all pre-configured generative models for the parser.
type VertexClient struct {
	VisionModel     *genai.GenerativeModel
	ReconcilerModel *genai.GenerativeModel
	RepairModel     *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region, visionModel, reconcilerModel string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	vision := baseClient.GenerativeModel(visionModel)
	vision.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(VisionSystemPrompt)},
	}
	configureJSONOutput(vision)

	reconciler := baseClient.GenerativeModel(reconcilerModel)
	reconciler.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ReconcilerSystemPrompt)},
	}
	configureJSONOutput(reconciler)

	repair := baseClient.GenerativeModel(reconcilerModel)
	repair.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(RepairSystemPrompt)},
	}
	configureJSONOutput(repair)

	return &VertexClient{
		VisionModel:     vision,
		ReconcilerModel: reconciler,
		RepairModel:     repair,
		baseClient:      baseClient,
	}, nil
}

// configureJSONOutput forces deterministic JSON responses. Resumes contain
// personal data, so the stock safety filters are relaxed the same way they
// are for every document-processing model here.
func configureJSONOutput(m *genai.GenerativeModel) {
	m.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	m.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// ResponseText concatenates the text parts of a model response and strips
// markdown fences the model sometimes wraps JSON in.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	s := strings.TrimSpace(b.String())
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// IsRefusal reports whether a model response reads as a refusal rather
// than document content. Refusals must fail the call, not flow downstream.
func IsRefusal(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
