// Package server contains shared plumbing for HTTP interfaces: typed
// JSON payloads and method-aware route tables bound to a chi router.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"log"
	"net/http"
	"sort"

	"github.com/go-chi/chi"
)

// FloatT is a struct with a single float64 field, used for JSON I/O.
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field, used for JSON I/O.
type IntT struct {
	Int int `json:"int"`
}

// BoolT is a struct with a single bool field, used for JSON I/O.
type BoolT struct {
	Bool bool `json:"bool"`
}

// StrT is a struct with a single string field, used for JSON I/O.
type StrT struct {
	Str string `json:"str"`
}

// HumanPayload is a struct that hold the various types of data that
// flow to or from a client; exactly one field is populated according
// to T.
type HumanPayload struct {
	// T holds the type of data actually contained in the payload
	T types.BasicKind

	// Int holds an int, if T == types.Int
	Int int

	// Float holds a float, if T == types.Float64
	Float float64

	// Bool holds a bool, if T == types.Bool
	Bool bool

	// String holds a string, if T == types.String
	String string
}

// EncodeAndRespond writes the payload to w as JSON with the key
// matching the FloatT/IntT/BoolT/StrT conventions.
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var err error
	switch hp.T {
	case types.Float64:
		err = json.NewEncoder(w).Encode(FloatT{F64: hp.Float})
	case types.Int:
		err = json.NewEncoder(w).Encode(IntT{Int: hp.Int})
	case types.Bool:
		err = json.NewEncoder(w).Encode(BoolT{Bool: hp.Bool})
	case types.String:
		err = json.NewEncoder(w).Encode(StrT{Str: hp.String})
	default:
		err = fmt.Errorf("unknown payload kind %v", hp.T)
	}
	if err != nil {
		fstr := fmt.Sprintf("error encoding payload to json %q", err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
	}
}

// MethodPath is a method, route pair, e.g. GET /exposure-time.
type MethodPath struct {
	Method string
	Path   string
}

// RouteTable maps method, path pairs to handlers.
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints lists the routes in the table as "METHOD path" strings,
// sorted.
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for mp := range rt {
		routes = append(routes, mp.Method+" "+mp.Path)
	}
	sort.Strings(routes)
	return routes
}

// Bind attaches every route in the table to r.
func (rt RouteTable) Bind(r chi.Router) {
	for mp, handler := range rt {
		r.Method(mp.Method, mp.Path, handler)
	}
}

// HTTPer is an object with a route table that can be bound to a
// router.
type HTTPer interface {
	RT() RouteTable
}
