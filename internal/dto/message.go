package dto

// SendMessageRequest is the body of a new message.
type SendMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=2000"`
}
