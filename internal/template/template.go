// Package template renders campaign messages for a lead. Messages use
// placeholders such as {{firstName}} or {{company}}.
package template

// VariableInfo documents a placeholder
type VariableInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Example     string `json:"example,omitempty"`
}

// Variables lists every placeholder a campaign message may use
var Variables = []VariableInfo{
	{Name: "firstName", Description: "First word of the lead name", Example: "Om"},
	{Name: "lastName", Description: "Last word of the lead name", Example: "Satyarthy"},
	{Name: "name", Description: "Full lead name", Example: "Om Satyarthy"},
	{Name: "title", Description: "Lead job title", Example: "Regional Head"},
	{Name: "company", Description: "Lead company", Example: "Gynoveda"},
	{Name: "campaign", Description: "Campaign name", Example: "Just Herbs"},
}

// Messages is one campaign's message sequence
type Messages struct {
	Request    string   `json:"requestMessage"`
	Connection string   `json:"connectionMessage"`
	Followups  []string `json:"followupMessages"`
}

// FieldError reports which message failed to parse or render
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
