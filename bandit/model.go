package bandit

// Batch is a model-ready set of plan representations produced by a BatchBuilder.
type Batch interface {
	// Len returns the number of elements in the batch.
	Len() int
}

// BatchBuilder turns plan representations and their target costs into a Batch.
// plans and costs are parallel; builders must accept any size from 1 to N*A.
type BatchBuilder interface {
	Build(plans []Plan, costs []float64) (Batch, error)
}

// BatchBuilderFunc adapts a function to the BatchBuilder interface.
type BatchBuilderFunc func(plans []Plan, costs []float64) (Batch, error)

// Build calls f(plans, costs).
func (f BatchBuilderFunc) Build(plans []Plan, costs []float64) (Batch, error) {
	return f(plans, costs)
}

// CostModel predicts the execution cost of plans and can be retrained in place.
// Calls are blocking; the optimizer never overlaps them with other work.
type CostModel interface {
	// Predict returns exactly one predicted cost per batch element, in batch order.
	Predict(batch Batch) ([]float64, error)

	// Train runs one training step on batch against costs, mutating the model.
	Train(batch Batch, costs []float64) error
}
