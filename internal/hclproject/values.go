package hclproject

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/vk/projectgraph/internal/properties"
)

// functions returns the functions available to project expressions.
func functions(globals *properties.Map) map[string]function.Function {
	return map[string]function.Function{
		"upper":     stdlib.UpperFunc,
		"lower":     stdlib.LowerFunc,
		"format":    stdlib.FormatFunc,
		"join":      stdlib.JoinFunc,
		"global_or": globalOrFunc(globals),
	}
}

// globalOrFunc looks a global property up case-insensitively and returns
// the fallback when it is not set.
func globalOrFunc(globals *properties.Map) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
			{Name: "fallback", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if v, ok := globals.Get(args[0].AsString()); ok {
				return cty.StringVal(v), nil
			}
			return args[1], nil
		},
	})
}

func objectOf(m *properties.Map) cty.Value {
	if m.Len() == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, m.Len())
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		attrs[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(attrs)
}

func evalAttr(attr *hcl.Attribute, evalCtx *hcl.EvalContext) (cty.Value, error) {
	v, diags := attr.Expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("%s: value of %q is not known", attr.Range, attr.Name)
	}
	return v, nil
}

func toString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}

func toBool(v cty.Value) (bool, error) {
	if v.IsNull() {
		return true, nil
	}
	b, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return false, err
	}
	return b.True(), nil
}

// toProperties converts an object or map to a property map. A string value
// is parsed as a "K=V;K=V" list. Names that cannot appear in such a list are
// rejected.
func toProperties(v cty.Value) (*properties.Map, error) {
	out := &properties.Map{}
	if v.IsNull() {
		return out, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return properties.ParseList(v.AsString()), nil
	case ty.IsObjectType() || ty.IsMapType():
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			if ev.IsNull() {
				continue
			}
			name := k.AsString()
			if err := properties.CheckListEntry(name, ""); err != nil {
				return nil, err
			}
			s, err := toString(ev)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			out.Set(name, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an object or a string, got %s", ty.FriendlyName())
	}
}

// toNameList converts a list, set or tuple of strings to a ';' separated
// list. A string is returned as is.
func toNameList(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	ty := v.Type()
	if ty == cty.String {
		return v.AsString(), nil
	}
	if !ty.IsListType() && !ty.IsSetType() && !ty.IsTupleType() {
		return "", fmt.Errorf("expected a list of names, got %s", ty.FriendlyName())
	}
	var names []string
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		s, err := toString(ev)
		if err != nil {
			return "", err
		}
		names = append(names, s)
	}
	return strings.Join(names, ";"), nil
}
