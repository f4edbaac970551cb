package common

import "fmt"

var (
	ErrValidationFailed    = fmt.Errorf("bundle validation failed")
	ErrPrerequisiteMissing = fmt.Errorf("prerequisite missing")
	ErrIntegrity           = fmt.Errorf("output tree integrity check failed")
	ErrBadConfig           = fmt.Errorf("invalid configuration")
)
