package models

const (
	StatusSuccess = "success"
	StatusError   = "error"

	ErrorCodeInvalidInput = "INVALID_INPUT"

	OutputTypeImage  = "image"
	MicroserviceName = "WatermarkTool"
	unknownValue     = "unknown"
)

// CompositeResult is the tool result payload. Exactly one of Error and Output
// is populated; the other serializes as an empty object.
type CompositeResult struct {
	MessageID string         `json:"messageId"`
	UserID    string         `json:"user_id"`
	ProjectID string         `json:"project_id"`
	Status    string         `json:"status"`
	Error     ResultError    `json:"error"`
	Output    ResultOutput   `json:"output"`
	Metadata  ResultMetadata `json:"metadata"`
}

type ResultError struct {
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
	Details *ErrorDetails `json:"details,omitempty"`
}

type ErrorDetails struct {
	InputFileURI string `json:"inputFileURI"`
}

type ResultOutput struct {
	Type     string `json:"type,omitempty"`
	ImageURI string `json:"imageURI,omitempty"`
}

type ResultMetadata struct {
	Microservice string `json:"microservice"`
}

// NewSuccessResult builds the success variant.
func NewSuccessResult(messageID, userID, projectID, imageURI string) *CompositeResult {
	return &CompositeResult{
		MessageID: messageID,
		UserID:    userID,
		ProjectID: projectID,
		Status:    StatusSuccess,
		Output: ResultOutput{
			Type:     OutputTypeImage,
			ImageURI: imageURI,
		},
		Metadata: ResultMetadata{Microservice: MicroserviceName},
	}
}

// NewErrorResult builds the INVALID_INPUT variant. Empty identifiers and URI
// are reported as "unknown".
func NewErrorResult(messageID, userID, projectID, inputURI string, err error) *CompositeResult {
	message := unknownValue
	if err != nil {
		message = err.Error()
	}

	return &CompositeResult{
		MessageID: messageID,
		UserID:    orUnknown(userID),
		ProjectID: orUnknown(projectID),
		Status:    StatusError,
		Error: ResultError{
			Code:    ErrorCodeInvalidInput,
			Message: message,
			Details: &ErrorDetails{InputFileURI: orUnknown(inputURI)},
		},
		Metadata: ResultMetadata{Microservice: MicroserviceName},
	}
}

func (r *CompositeResult) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

func orUnknown(value string) string {
	if value == "" {
		return unknownValue
	}
	return value
}
