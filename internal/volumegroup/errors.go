package volumegroup

import "github.com/carbon-audio/audiopolicy/internal/apperr"

var (
	errEmptyGroup   = apperr.New(apperr.Configuration, "volume group has no devices to derive a gain stage from")
	errStepMismatch = apperr.New(apperr.Configuration, "step mismatch among devices in one volume group")
)
