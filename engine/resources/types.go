package resources

import "fmt"

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	ResourceTypeUnknown ResourceType = iota
	/** @brief 2D image-backed texture. */
	ResourceTypeTexture
	/** @brief Six-faced texture, used for skyboxes and reflections. */
	ResourceTypeCubemap
	/** @brief Mesh collection. */
	ResourceTypeModel
	/** @brief Bitmap or outline font. */
	ResourceTypeFont
	/** @brief Shader source or bytecode. */
	ResourceTypeShader

	resourceTypeCount
)

// ResourceTypeAll selects every type in per-type queries.
const ResourceTypeAll ResourceType = -1

var resourceTypeNames = [resourceTypeCount]string{
	ResourceTypeUnknown: "unknown",
	ResourceTypeTexture: "texture",
	ResourceTypeCubemap: "cubemap",
	ResourceTypeModel:   "model",
	ResourceTypeFont:    "font",
	ResourceTypeShader:  "shader",
}

func (t ResourceType) String() string {
	switch {
	case t == ResourceTypeAll:
		return "all"
	case t < 0 || t >= resourceTypeCount:
		return fmt.Sprintf("ResourceType(%d)", int(t))
	}
	return resourceTypeNames[t]
}

func (t ResourceType) valid() bool {
	return t > ResourceTypeUnknown && t < resourceTypeCount
}

// ResourceTypes returns every concrete resource type.
func ResourceTypes() []ResourceType {
	out := make([]ResourceType, 0, resourceTypeCount-1)
	for t := ResourceTypeTexture; t < resourceTypeCount; t++ {
		out = append(out, t)
	}
	return out
}

// ParseResourceType is the inverse of ResourceType.String.
func ParseResourceType(s string) (ResourceType, bool) {
	for t := ResourceTypeTexture; t < resourceTypeCount; t++ {
		if resourceTypeNames[t] == s {
			return t, true
		}
	}
	return ResourceTypeUnknown, false
}

type LoadState int

const (
	LoadStateIdle LoadState = iota
	LoadStateLoading
	LoadStateCompleted
	LoadStateFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadStateIdle:
		return "idle"
	case LoadStateLoading:
		return "loading"
	case LoadStateCompleted:
		return "completed"
	case LoadStateFailed:
		return "failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// canMoveTo allows only Idle -> Loading -> {Completed, Failed}.
func (s LoadState) canMoveTo(next LoadState) bool {
	switch s {
	case LoadStateIdle:
		return next == LoadStateLoading
	case LoadStateLoading:
		return next == LoadStateCompleted || next == LoadStateFailed
	}
	return false
}
