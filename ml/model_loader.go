package ml

import (
	"fmt"
)

const (
	ModelTypeTreeEnsemble = "tree_ensemble"
	ModelTypeLinear       = "linear"
)

// LoadModel reads a trained model artifact of the given type from path.
func LoadModel(modelType, path string) (Model, error) {
	switch modelType {
	case ModelTypeTreeEnsemble:
		model := &TreeEnsemble{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	case ModelTypeLinear:
		model := &LinearModel{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}
