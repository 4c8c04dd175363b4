//go:build !sonic

package scriptsdk

import (
	"github.com/goccy/go-json"
)

// for imroc/req and the version document
var jsonMarshal = json.Marshal
var jsonUnmarshal = json.Unmarshal
