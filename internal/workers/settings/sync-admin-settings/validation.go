package syncadminsettings

import "apply-desk/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"direction": {
				Type:        "string",
				Description: "pull copies the remote row into the local cache, push uploads the local cache",
				Enum:        []string{DirectionPull, DirectionPush},
			},
		},
	}
}
