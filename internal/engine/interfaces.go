package engine

import (
	"funnelflow/internal/model"
	"funnelflow/internal/pipeline"
)

// StageValidator gates requested stage transitions. Implemented by
// pipeline.Validator; declared here so tests can substitute a stub.
type StageValidator interface {
	Validate(kind model.Kind, current, target model.Stage) pipeline.Decision
}
