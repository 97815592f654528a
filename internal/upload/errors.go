package upload

import "errors"

var (
	ErrEtagMissing     = errors.New("upload: etag missing for part")
	ErrPartsIncomplete = errors.New("upload: not all parts were acknowledged")
)
