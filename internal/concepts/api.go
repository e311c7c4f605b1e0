package concepts

import (
	"context"
	"sync"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// API records requests arriving from the outside and the responses rules
// assemble for them. It is the boundary concept: an HTTP adapter invokes
// request, lets the cascade run, then reads the response back with _get.
type API struct {
	methods
	mu       sync.Mutex
	ids      IDFunc
	requests map[string]*apiRequest
}

type apiRequest struct {
	id     string
	method string
	input  ir.IRObject
	output ir.IRValue
}

func newAPI(o Options) *API {
	a := &API{
		methods:  newMethods(),
		ids:      o.IDs,
		requests: make(map[string]*apiRequest),
	}
	a.actions["request"] = a.request
	a.actions["response"] = a.response
	a.actions["append"] = a.appendItem
	a.queries["_get"] = a.get
	return a
}

// request{request?, method, ...fields} -> {request}
//
// Every field besides request is kept as the request's input, method
// included, so rules can pattern-match on any of them.
func (a *API) request(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args struct {
		Request string `mapstructure:"request"`
		Method  string `mapstructure:"method"`
	}
	if err := decode(in, &args); err != nil {
		return nil, err
	}
	if args.Method == "" {
		return fail("method is required")
	}
	if args.Request == "" {
		args.Request = a.ids("request")
	}

	input := make(ir.IRObject, len(in))
	for k, v := range in {
		if k != "request" {
			input[k] = v
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.requests[args.Request]; exists {
		return fail("request already exists")
	}
	a.requests[args.Request] = &apiRequest{
		id:     args.Request,
		method: args.Method,
		input:  input,
		output: ir.IRNull{},
	}
	return reply(ir.O("request", str(args.Request)))
}

// response{request, output} -> {request}
func (a *API) response(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	id := in.String("request")
	output, ok := in.Get("output")
	if !ok {
		output = ir.IRObject{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	req, exists := a.requests[id]
	if !exists {
		return fail("request not found")
	}
	req.output = output
	return reply(ir.O("request", str(id)))
}

// append{request, item} -> {request}
//
// Appends item to the response's items array, creating {items: []} when
// no response has been set yet.
func (a *API) appendItem(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	id := in.String("request")
	item, ok := in.Get("item")
	if !ok {
		return fail("item is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	req, exists := a.requests[id]
	if !exists {
		return fail("request not found")
	}

	out, isObj := req.output.(ir.IRObject)
	if !isObj {
		out = ir.IRObject{}
	}
	items, _ := out["items"].(ir.IRArray)
	next := make(ir.IRArray, len(items), len(items)+1)
	copy(next, items)
	req.output = out.With("items", append(next, item))
	return reply(ir.O("request", str(id)))
}

// _get{request} -> [{request, method, input, output}]
func (a *API) get(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	req, exists := a.requests[in.String("request")]
	if !exists {
		return nil, nil
	}
	return []ir.IRObject{ir.Obj(
		ir.O("request", str(req.id)),
		ir.O("method", str(req.method)),
		ir.O("input", req.input),
		ir.O("output", req.output),
	)}, nil
}
