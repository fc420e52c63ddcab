package models

import "fmt"

// Provider errors shared by the sync pipeline
var (
	ErrInvalidCredential = fmt.Errorf("invalid credential")
	ErrProjectNotFound   = fmt.Errorf("project not found")
)
