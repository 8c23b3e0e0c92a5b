package ik

import "errors"

var (
	// ErrBoneNotFound is returned when a skeleton path does not resolve.
	ErrBoneNotFound = errors.New("bone not found")

	// ErrNoBonePath is returned when the path table has no entry for a bone.
	ErrNoBonePath = errors.New("no path for bone")
)
