package wwsvc

import (
	"net/http"
	"reflect"
	"testing"

	"github.com/al-bashkir/wwsvc-go/internal/mockserver"
)

func TestFieldsOf(t *testing.T) {
	want := []string{"ART_1_25", "ART_2_25"}
	if got := FieldsOf[article](); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := FieldsOf[*article](); !reflect.DeepEqual(got, want) {
		t.Errorf("pointer type: expected %v, got %v", want, got)
	}
	if got := FieldsOf[map[string]any](); got != nil {
		t.Errorf("non-struct: expected nil, got %v", got)
	}
}

func TestResourceDefaults(t *testing.T) {
	r := ResourceFor[article]("ARTIKEL")

	if r.FunctionName() != "ARTIKEL.GET" {
		t.Errorf("unexpected function name %s", r.FunctionName())
	}
	if r.method() != http.MethodPut || r.version() != 1 {
		t.Errorf("unexpected defaults %s %d", r.method(), r.version())
	}
	if r.ListShape() != (ListShape{"ARTIKELLISTE", "ARTIKEL"}) {
		t.Errorf("unexpected shape %+v", r.ListShape())
	}
	if got := r.parameters(nil)["FELDER"]; got != "ART_1_25,ART_2_25" {
		t.Errorf("unexpected FELDER %q", got)
	}
}

func TestGet(t *testing.T) {
	mock, c := newRegisteredClient(t, mockserver.WithPages(
		mockserver.ListPage("", "ADRESSLISTE", "ADRESSE", 0, 2),
	))

	res := Resource{Name: "ADRESSE", Version: 2, Fields: []string{"ID"}}
	resp, err := Get[item](t.Context(), c, res, Parameters{"ADR_1_10": "1*"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(resp.Items))
	}

	call := mock.Requests()[0]
	if call.Body.Function.FunctionName != "ADRESSE.GET" || call.Body.Function.Revision != 2 {
		t.Errorf("unexpected function %+v", call.Body.Function)
	}
	if v, _ := call.Body.Param("FELDER"); v != "ID" {
		t.Errorf("expected FELDER=ID, got %q", v)
	}
	if v, _ := call.Body.Param("ADR_1_10"); v != "1*" {
		t.Errorf("expected ADR_1_10=1*, got %q", v)
	}
}

func TestGetCursored(t *testing.T) {
	_, c := newRegisteredClient(t, mockserver.WithPages(
		mockserver.ListPage("tok1", "POSITIONSLISTE", "POSITION", 0, 3),
		mockserver.ListPage("CLOSED", "POSITIONSLISTE", "POSITION", 3, 1),
	))

	p := GetCursored[item](c, Resource{Name: "BELPOS"}, nil, 3)
	all, err := p.CollectAll(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 items, got %d", len(all))
	}
}
