package attributes

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/mrzor/strace-tree/internal/config"
	"github.com/mrzor/strace-tree/internal/procmeta"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Evaluator handles compilation and evaluation of custom attribute expressions.
type Evaluator struct {
	customAttrs   []config.CustomAttribute
	compiledExprs []*vm.Program
}

// NewEvaluator creates a new attribute evaluator.
// It pre-compiles all custom attribute expressions.
func NewEvaluator(customAttrs []config.CustomAttribute) (*Evaluator, error) {
	compiledExprs := make([]*vm.Program, len(customAttrs))
	for i, attr := range customAttrs {
		program, err := compile(fmt.Sprintf("attribute %q", attr.Name), attr.Expression)
		if err != nil {
			return nil, err
		}
		compiledExprs[i] = program
	}

	return &Evaluator{
		customAttrs:   customAttrs,
		compiledExprs: compiledExprs,
	}, nil
}

// Names returns the configured attribute names, in order.
func (e *Evaluator) Names() []string {
	names := make([]string, len(e.customAttrs))
	for i, attr := range e.customAttrs {
		names[i] = attr.Name
	}
	return names
}

// EvaluateCustomAttributes evaluates custom attribute expressions for a given process.
// A failing expression is logged and skipped; it never fails the report.
func (e *Evaluator) EvaluateCustomAttributes(metadata *procmeta.ProcessMetadata) ([]attribute.KeyValue, error) {
	if len(e.customAttrs) == 0 || metadata == nil {
		return nil, nil
	}

	env := runEnv(metadata)

	var attrs []attribute.KeyValue
	for i, customAttr := range e.customAttrs {
		output, err := expr.Run(e.compiledExprs[i], env)
		if err != nil {
			log.WithField("attribute", customAttr.Name).Warnf("failed to evaluate expression: %v", err)
			continue
		}

		attrs = append(attrs, expand(customAttr.Name, output)...)
	}

	return attrs, nil
}

// expand converts an expression result into attributes. Maps become one
// attribute per key, named name.key, in sorted key order.
func expand(name string, output interface{}) []attribute.KeyValue {
	value := reflect.ValueOf(output)
	if value.Kind() != reflect.Map {
		return []attribute.KeyValue{attribute.String(name, fmt.Sprint(output))}
	}

	keys := value.MapKeys()
	names := make([]string, len(keys))
	byName := make(map[string]reflect.Value, len(keys))
	for i, key := range keys {
		names[i] = name + "." + sanitizeAttributeName(fmt.Sprintf("%v", key.Interface()))
		byName[names[i]] = value.MapIndex(key)
	}
	sort.Strings(names)

	attrs := make([]attribute.KeyValue, 0, len(names))
	for _, attrName := range names {
		attrs = append(attrs, attribute.String(attrName, fmt.Sprintf("%v", byName[attrName].Interface())))
	}
	return attrs
}

// sanitizeAttributeName replaces non-alphanumeric characters with underscores.
func sanitizeAttributeName(name string) string {
	result := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result[i] = c
		} else {
			result[i] = '_'
		}
	}
	return string(result)
}
