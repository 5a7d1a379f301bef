package wwsvc

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ListShape names the JSON keys of a list response:
//
//	{"COMRESULT": {...}, "<Container>": {"<List>": [ ... ]}}
type ListShape struct {
	Container string
	List      string
}

// Lists whose container name is not simply the list name followed by LISTE.
var knownShapes = map[string]ListShape{
	"ARTIKEL":         {Container: "ARTIKELLISTE", List: "ARTIKEL"},
	"ADRESSE":         {Container: "ADRESSLISTE", List: "ADRESSE"},
	"BELEG":           {Container: "BELEGLISTE", List: "BELEG"},
	"BELPOS":          {Container: "POSITIONSLISTE", List: "POSITION"},
	"POSITION":        {Container: "POSITIONSLISTE", List: "POSITION"},
	"PROJEKT":         {Container: "PROJEKTLISTE", List: "PROJEKT"},
	"SERIENNUMMER":    {Container: "SERIENNUMMERNLISTE", List: "SERIENNUMMER"},
	"CHARGE":          {Container: "CHARGENLISTE", List: "CHARGE"},
	"ADRESSARTIKEL":   {Container: "ADRESSARTIKELLISTE", List: "ADRESSARTIKEL"},
	"LIEFERADRESSE":   {Container: "LIEFERADRESSLISTE", List: "LIEFERADRESSE"},
	"ANSPRECHPARTNER": {Container: "ANSPRECHPARTNERLISTE", List: "ANSPRECHPARTNER"},
	"VERTRETER":       {Container: "VERTRETERLISTE", List: "VERTRETER"},
	"TERMIN":          {Container: "TERMINLISTE", List: "TERMIN"},
	"GESPRAECH":       {Container: "GESPRAECHELISTE", List: "GESPRAECH"},
	"WIEDERVORLAGE":   {Container: "WIEDERVORLAGELISTE", List: "WIEDERVORLAGE"},
	"WARENGRUPPE":     {Container: "WARENGRUPPENLISTE", List: "WARENGRUPPE"},
	"LAGER":           {Container: "LAGERLISTE", List: "LAGER"},
	"KATALOG":         {Container: "KATALOGLISTE", List: "KATALOG"},
	"KATEGORIE":       {Container: "KATEGORIENLISTE", List: "KATEGORIE"},
	"EANCODE":         {Container: "EANCODELISTE", List: "EANCODE"},
}

// ShapeFor returns the list shape of a function such as "ARTIKEL.GET" or
// "IDBID0026". Known irregular lists are looked up, all others are derived as
// {BASE}LISTE / {BASE}.
func ShapeFor(function string) ListShape {
	base, _, _ := strings.Cut(function, ".")
	if shape, ok := knownShapes[base]; ok {
		return shape
	}
	return ListShape{Container: base + "LISTE", List: base}
}

// ListResponse is a decoded list response. HasContainer and HasList report
// whether the corresponding keys were present and non-null, which tells an
// empty list apart from a missing one.
type ListResponse[T any] struct {
	ComResult    ComResult
	Items        []T
	HasContainer bool
	HasList      bool
}

// DecodeList decodes body according to shape. A missing container or list is
// not an error.
func DecodeList[T any](body []byte, shape ListShape) (*ListResponse[T], error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, &DecodeError{Body: body, Err: err}
	}

	out := &ListResponse[T]{}
	if raw, ok := present(top, "COMRESULT"); ok {
		if err := json.Unmarshal(raw, &out.ComResult); err != nil {
			return nil, &DecodeError{Body: body, Err: err}
		}
	}

	raw, ok := present(top, shape.Container)
	if !ok {
		return out, nil
	}
	out.HasContainer = true

	var container map[string]json.RawMessage
	if err := json.Unmarshal(raw, &container); err != nil {
		return nil, &DecodeError{Body: body, Err: err}
	}

	raw, ok = present(container, shape.List)
	if !ok {
		return out, nil
	}
	out.HasList = true

	if err := json.Unmarshal(raw, &out.Items); err != nil {
		return nil, &DecodeError{Body: body, Err: err}
	}
	if out.Items == nil {
		out.Items = []T{}
	}
	return out, nil
}

func present(m map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := m[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}
