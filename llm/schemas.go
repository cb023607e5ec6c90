package llm

import (
	"github.com/invopop/jsonschema"

	"github.com/thomasfsr/fitpipe/plan"
)

func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var (
	WorkoutPlanSchema    = GenerateSchema[plan.WorkoutPlan]()
	RecipeSchema         = GenerateSchema[plan.Recipe]()
	TrackingReportSchema = GenerateSchema[plan.TrackingReport]()
)
