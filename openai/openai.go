// Package openai implements [dave.RunService], [dave.FileService] and
// [dave.Moderator] for the OpenAI Assistants API (v2).
//
// Runs are started with streaming enabled. The SSE parser turns the
// assistant's message and run-step deltas into semantic events delivered
// through the pull-based [dave.Stream] interface. One SSE event may yield
// several semantic events, e.g. a content index change closes the previous
// text before the next one is created.
package openai

const (
	defaultBaseURL = "https://api.openai.com"
	betaHeader     = "assistants=v2"
	threadsPath    = "/v1/threads"
	filesPath      = "/v1/files"
	moderationPath = "/v1/moderations"
	filePurpose    = "assistants"
	messagePageMax = 100
)

type apiObject struct {
	ID string `json:"id"`
}

type apiToolResources struct {
	CodeInterpreter *apiCodeInterpreterResources `json:"code_interpreter,omitempty"`
}

type apiCodeInterpreterResources struct {
	FileIDs []string `json:"file_ids"`
}

type apiModifyThread struct {
	ToolResources apiToolResources `json:"tool_resources"`
}

type apiCreateMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiToolChoice struct {
	Type string `json:"type"`
}

// apiRunRequest is the JSON body sent to create a streaming run.
type apiRunRequest struct {
	AssistantID  string        `json:"assistant_id"`
	Model        string        `json:"model,omitempty"`
	Instructions string        `json:"instructions,omitempty"`
	Temperature  *float64      `json:"temperature,omitempty"`
	ToolChoice   apiToolChoice `json:"tool_choice"`
	Stream       bool          `json:"stream"`
}

type apiFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	Purpose  string `json:"purpose"`
}

type apiMessageList struct {
	Data    []apiMessage `json:"data"`
	HasMore bool         `json:"has_more"`
	LastID  string       `json:"last_id"`
}

type apiMessage struct {
	ID          string              `json:"id"`
	Role        string              `json:"role"`
	Content     []apiMessageContent `json:"content"`
	Attachments []apiAttachment     `json:"attachments"`
}

type apiAttachment struct {
	FileID string `json:"file_id"`
}

type apiMessageContent struct {
	Type string          `json:"type"`
	Text *apiMessageText `json:"text,omitempty"`
}

type apiMessageText struct {
	Value       string          `json:"value"`
	Annotations []apiAnnotation `json:"annotations"`
}

type apiAnnotation struct {
	Type     string       `json:"type"`
	FilePath *apiFileLink `json:"file_path,omitempty"`
}

type apiFileLink struct {
	FileID string `json:"file_id"`
}

type apiModerationRequest struct {
	Input string `json:"input"`
}

type apiModerationResponse struct {
	Results []struct {
		Flagged bool `json:"flagged"`
	} `json:"results"`
}

// SSE payloads.

type sseMessageDelta struct {
	ID    string `json:"id"`
	Delta struct {
		Content []sseContentDelta `json:"content"`
	} `json:"delta"`
}

type sseContentDelta struct {
	Index     int          `json:"index"`
	Type      string       `json:"type"`
	Text      *sseText     `json:"text,omitempty"`
	ImageFile *apiFileLink `json:"image_file,omitempty"`
}

type sseText struct {
	Value string `json:"value"`
}

type sseRunStepDelta struct {
	ID    string `json:"id"`
	Delta struct {
		StepDetails sseStepDetails `json:"step_details"`
	} `json:"delta"`
}

type sseStepDetails struct {
	Type      string             `json:"type"`
	ToolCalls []sseToolCallDelta `json:"tool_calls"`
}

type sseToolCallDelta struct {
	Index           int                 `json:"index"`
	ID              string              `json:"id"`
	Type            string              `json:"type"`
	CodeInterpreter *sseCodeInterpreter `json:"code_interpreter,omitempty"`
}

type sseCodeInterpreter struct {
	Input   string          `json:"input"`
	Outputs []sseCodeOutput `json:"outputs"`
}

type sseCodeOutput struct {
	Index int          `json:"index"`
	Type  string       `json:"type"`
	Logs  string       `json:"logs,omitempty"`
	Image *apiFileLink `json:"image,omitempty"`
}

type sseRun struct {
	ID                string         `json:"id"`
	Status            string         `json:"status"`
	LastError         *apiErrorBody  `json:"last_error"`
	IncompleteDetails *sseIncomplete `json:"incomplete_details"`
}

type sseIncomplete struct {
	Reason string `json:"reason"`
}

// apiErrorBody is the error object shared by HTTP error responses, error
// events and failed runs.
type apiErrorBody struct {
	Type    string          `json:"type"`
	Code    string `json:"code"`
	Message string          `json:"message"`
}

// apiErrorResponse is the JSON body returned on non-2xx HTTP responses.
type apiErrorResponse struct {
	Error apiErrorBody `json:"error"`
}
