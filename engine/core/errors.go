package core

import (
	"errors"
)

var (
	// ErrInvalidParameter reports malformed or empty input. Nothing is retained.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrDeviceResourceCreationFailed reports that the device refused to create a texture object.
	ErrDeviceResourceCreationFailed = errors.New("device resource creation failed")
	// ErrDeviceViewCreationFailed reports that the device refused to create a shader resource view.
	ErrDeviceViewCreationFailed = errors.New("device view creation failed")
	// ErrPerLevelDataMissing is recoverable: the mip level or face is skipped.
	ErrPerLevelDataMissing = errors.New("mip level has no data")
	// ErrImportFailed is recoverable: the resource is marked failed and the caller falls back.
	ErrImportFailed = errors.New("import failed")

	ErrInvalidStateTransition = errors.New("invalid load state transition")
	ErrTypeMismatch           = errors.New("resource type mismatch")
	ErrNotSavable             = errors.New("resource cannot be saved")
	ErrUnknownResourceType    = errors.New("unknown resource type")
	ErrFileFormat             = errors.New("corrupted or not an anima resource file")
	ErrFileVersion            = errors.New("unsupported anima resource file version")
	ErrUnknown                = errors.New("unknown")
)
