package client

import (
	"encoding/json"

	"github.com/Sternrassler/product-collector/pkg/product"
	"github.com/tidwall/gjson"
)

// ParseProduct extracts a product from a response body. It never fails:
// missing, null or mistyped fields become empty values, and a body that is not
// valid JSON yields a product carrying only the requested id.
func ParseProduct(body []byte, id string) *product.Product {
	p := &product.Product{
		ID:     product.RawID(id),
		Images: []string{},
	}

	if len(body) == 0 || !gjson.ValidBytes(body) {
		return p
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return p
	}

	if v := root.Get("id"); v.Exists() && v.Type != gjson.Null {
		p.ID = json.RawMessage(v.Raw)
	}

	p.Name = stringField(root, "name")
	p.URLKey = stringField(root, "url_key")
	p.Description = stringField(root, "description")

	if v := root.Get("price"); v.Type == gjson.Number {
		price := v.Float()
		p.Price = &price
	}

	if images := root.Get("images"); images.IsArray() {
		images.ForEach(func(_, img gjson.Result) bool {
			if u := img.Get("base_url"); u.Type == gjson.String && u.Str != "" {
				p.Images = append(p.Images, u.Str)
			}
			return true
		})
	}

	return p
}

func stringField(root gjson.Result, path string) string {
	v := root.Get(path)
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number, gjson.True, gjson.False:
		return v.String()
	default:
		return ""
	}
}
