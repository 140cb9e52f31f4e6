package tools

import "github.com/aretw0/joule/pkg/domain"

var relativeDateTool = domain.Tool{
	Name:        RelativeDateName,
	Description: "Return a date offset from the given datetime in the specified timezone using calendar or business days.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"current_datetime": map[string]any{
				"type":        "string",
				"description": "Reference datetime in ISO 8601 format.",
			},
			"timezone": map[string]any{
				"type":        "string",
				"description": "IANA timezone name, e.g. Europe/Warsaw.",
			},
			"offset_days": map[string]any{
				"type":        "integer",
				"description": "Number of days to move; negative values move backwards.",
			},
			"day_type": map[string]any{
				"type":    "string",
				"enum":    []string{"calendar", "business"},
				"default": "calendar",
			},
		},
		"required": []string{"current_datetime", "timezone", "offset_days"},
	},
}

var setActiveWorkflowTool = domain.Tool{
	Name: SetActiveWorkflowName,
	Description: "Set the active workflow for the chat session. " +
		"'none' is the default conversation, 'project' gathers inputs for a new project, " +
		"'brief' gathers inputs for a new brief.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workflow": map[string]any{
				"type": "string",
				"enum": []string{"none", "brief", "project"},
			},
		},
		"required": []string{"workflow"},
	},
}

var createProjectTool = domain.Tool{
	Name:        CreateProjectName,
	Description: "Use this tool to create a new project once the user confirmed its details.",
	Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
}

var createBriefTool = domain.Tool{
	Name:        CreateBriefName,
	Description: "Use this tool to create a new brief once the user confirmed its details.",
	Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
}
