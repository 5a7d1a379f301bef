package wwsvc

import (
	"context"
	"net/http"
	"reflect"
	"strings"
)

// Resource describes a list function of the form NAME.GET.
type Resource struct {
	Name    string   // e.g. "ARTIKEL"
	Version uint32   // 0 = 1
	Method  string   // "" = PUT
	Fields  []string // sent as FELDER when non-empty
	Shape   *ListShape
}

// ResourceFor returns the resource name with its fields taken from T.
func ResourceFor[T any](name string) Resource {
	return Resource{Name: name, Fields: FieldsOf[T]()}
}

// FunctionName returns NAME.GET.
func (r Resource) FunctionName() string { return r.Name + ".GET" }

// ListShape returns the configured shape or the one derived from the name.
func (r Resource) ListShape() ListShape {
	if r.Shape != nil {
		return *r.Shape
	}
	return ShapeFor(r.Name)
}

func (r Resource) method() string {
	if r.Method == "" {
		return http.MethodPut
	}
	return r.Method
}

func (r Resource) version() uint32 {
	if r.Version == 0 {
		return 1
	}
	return r.Version
}

func (r Resource) parameters(params Parameters) Parameters {
	if len(r.Fields) == 0 {
		return params.Clone()
	}
	return params.With("FELDER", strings.Join(r.Fields, ","))
}

// FieldsOf lists the JSON names of the exported fields of struct T, in
// declaration order. Fields tagged "-" or without a json tag are skipped.
func FieldsOf[T any]() []string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var fields []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields = append(fields, name)
	}
	return fields
}

// Get fetches a single page of res.
func Get[T any](ctx context.Context, c *Client, res Resource, params Parameters) (*ListResponse[T], error) {
	body, _, err := c.roundTrip(ctx, res.method(), res.FunctionName(), res.version(), res.parameters(params), nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[T](body, res.ListShape())
}

// GetCursored returns a paginator over res.
func GetCursored[T any](c *Client, res Resource, params Parameters, pageSize uint32, opts ...PaginatorOption) *Paginator[T] {
	opts = append([]PaginatorOption{WithListShape(res.ListShape())}, opts...)
	return NewPaginator[T](c, res.method(), res.FunctionName(), res.version(), res.parameters(params), pageSize, opts...)
}
