package workflow

import "github.com/aretw0/joule/pkg/domain"

// ProjectBudgetCeiling is the largest budget a project may request.
const ProjectBudgetCeiling = 1000

// DescriptionMinLength is the shortest accepted description.
const DescriptionMinLength = 20

// WorkTypes lists the kinds of work a brief can be raised for.
var WorkTypes = []string{
	"Artwork Adaptations",
	"Artworking",
	"Animated Banners",
	"Brochures",
	"Corporate Presentations",
	"Creative Presentations",
	"Digital Adverts",
	"Email Designs",
	"Flyers",
	"HTML5 Banner Designs",
	"Leaflets",
	"Pitch Documents",
	"Reports",
	"Rich Media Banners",
	"Static Banners",
	"Template Adaptations",
	"Color Correction",
	"Retouching",
	"Cutout / Masking",
	"AI Gen images",
}

// None is the default conversational workflow.
var None = Workflow{
	Name:        domain.WorkflowNone,
	Instruction: "Behave as a basic, neutral conversational agent.",
	Steps: []Step{
		{ID: "default_conversation", Instruction: "Ask the user what they want to do."},
	},
}

// Project gathers the inputs needed to create a project.
var Project = Workflow{
	Name:        domain.WorkflowProject,
	Instruction: "Follow a structured process to gather inputs for creating a project.",
	Steps: []Step{
		{
			ID:          "plan_project",
			Field:       domain.FieldBudget,
			Instruction: "Ask the user what the project budget is.",
			Validator:   Numeric{Max: ProjectBudgetCeiling},
		},
		{
			ID:          "describe_project",
			Field:       domain.FieldDescription,
			Instruction: "Ask the user to describe the project.",
			Validator:   Text{MinLength: DescriptionMinLength},
		},
		{
			ID:          "confirm_project",
			Field:       domain.FieldConfirmed,
			Instruction: "Summarise the collected budget and description and ask the user to confirm them.",
			Validator:   Confirmation{},
		},
	},
	CompleteInstruction: "All project inputs are confirmed. Call the create_project tool and tell the user the outcome.",
}

// Brief gathers the inputs needed to create a brief.
var Brief = Workflow{
	Name:        domain.WorkflowBrief,
	Instruction: "Follow a structured process to gather inputs for creating a brief.",
	Steps: []Step{
		{
			ID:          "name_brief",
			Field:       domain.FieldName,
			Instruction: "Ask the user for the name of the brief.",
			Validator:   Text{MinLength: 3},
		},
		{
			ID:          "choose_work_type",
			Field:       domain.FieldWorkType,
			Instruction: "Ask the user which type of work the brief is for.",
			Validator:   OneOf{Options: WorkTypes},
		},
		{
			ID:          "set_deadline",
			Field:       domain.FieldDeadline,
			Instruction: "Ask the user for the deadline. Resolve relative dates with the relative_date tool.",
			Validator:   Date{},
		},
		{
			ID:          "describe_brief",
			Field:       domain.FieldDescription,
			Instruction: "Ask the user to describe what the brief should deliver.",
			Validator:   Text{MinLength: DescriptionMinLength},
		},
		{
			ID:          "confirm_brief",
			Field:       domain.FieldConfirmed,
			Instruction: "Summarise the collected brief details and ask the user to confirm them.",
			Validator:   Confirmation{},
		},
	},
	CompleteInstruction: "All brief inputs are confirmed. Call the create_brief tool and tell the user the outcome.",
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return MustCatalog(None, Project, Brief)
}
