package chi

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"github.com/oapi-codegen/runtime"
)

// StateParams selects a filter state by URL fragment.
type StateParams struct {
	State string `schema:"state"`
}

// QueryParams are the parameters of GET /v1/query.
type QueryParams struct {
	State    string `schema:"state"`
	Relation string `schema:"relation,default:parent"`
}

// ConstituentsParams are the parameters of GET /v1/constituents.
type ConstituentsParams struct {
	State string `schema:"state"`
	From  int    `schema:"from"`
}

// WaitParams make session reads block until the running generation is done.
type WaitParams struct {
	Wait bool `schema:"wait"`
}

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

func decodeQuery(dst any, q url.Values) error {
	if err := queryDecoder.Decode(dst, q); err != nil {
		return fmt.Errorf("invalid query parameters: %w", err)
	}
	return nil
}

// bindPath binds a simple-style path parameter into dest.
func bindPath(r *http.Request, name string, dest any) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return nil
}
