package submitapplication

import "apply-desk/internal/common/validation"

// GetInputSchema checks variable types only. Missing or empty form fields
// are reported by the submission service with the applicant-facing message.
func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"name": {
				Type:      "string",
				MaxLength: validation.IntPtr(100),
			},
			"phone": {
				Type:      "string",
				MaxLength: validation.IntPtr(30),
			},
			"workType": {
				Type:      "string",
				MaxLength: validation.IntPtr(50),
			},
			"startDate": {
				Type:        "string",
				Description: "YYYY-MM-DD",
				MaxLength:   validation.IntPtr(10),
			},
			"description": {
				Type:      "string",
				MaxLength: validation.IntPtr(2000),
			},
			"privacy": {
				Type: "boolean",
			},
		},
	}
}
