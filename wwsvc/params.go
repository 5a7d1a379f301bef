package wwsvc

import "sort"

// Parameters are the PNAME/PCONTENT pairs of a service function call.
type Parameters map[string]string

// Set assigns value to key in place and returns p for chaining. p must be
// non-nil.
func (p Parameters) Set(key, value string) Parameters {
	p[key] = value
	return p
}

// With returns a copy of p with key set to value. It is safe on a nil map.
func (p Parameters) With(key, value string) Parameters {
	out := p.Clone()
	out[key] = value
	return out
}

// Merge returns a copy of p with all pairs of other added. Pairs in other win.
func (p Parameters) Merge(other map[string]string) Parameters {
	out := p.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Clone returns a non-nil copy of p.
func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// serviceParameters renders p sorted by name so request bodies are stable.
func (p Parameters) serviceParameters() []ServiceFunctionParameter {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ServiceFunctionParameter, 0, len(names))
	for _, name := range names {
		out = append(out, ServiceFunctionParameter{Name: name, Content: p[name]})
	}
	return out
}
