// Package docs registers the gateway's OpenAPI document with swag, so the
// swagger UI can serve it as doc.json.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var doc string

type document struct{}

func (document) ReadDoc() string {
	return doc
}

func init() {
	swag.Register(swag.Name, document{})
}
