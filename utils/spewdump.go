package utils

import (
	"github.com/davecgh/go-spew/spew"
)

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
	spewConfig.SortKeys = true
	spewConfig.MaxDepth = 6
}

func SDump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}
