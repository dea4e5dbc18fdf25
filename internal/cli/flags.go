package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"QiitaAnalyzer/internal/sorter"
)

// enumValue is a string flag restricted to a fixed set of values.
type enumValue struct {
	value   string
	allowed []string
}

var _ pflag.Value = (*enumValue)(nil)

func newEnum(def string, allowed ...string) *enumValue {
	return &enumValue{value: def, allowed: allowed}
}

func (e *enumValue) String() string { return e.value }

func (e *enumValue) Set(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	if !slices.Contains(e.allowed, v) {
		return fmt.Errorf("must be one of %s", strings.Join(e.allowed, "|"))
	}
	e.value = v
	return nil
}

func (e *enumValue) Type() string { return "string" }

// keyValue is the --sort flag, validated by sorter.ParseKey.
type keyValue struct {
	key sorter.Key
}

var _ pflag.Value = (*keyValue)(nil)

func (k *keyValue) String() string { return string(k.key) }

func (k *keyValue) Set(v string) error {
	key, err := sorter.ParseKey(strings.ToLower(strings.TrimSpace(v)))
	if err != nil {
		return err
	}
	k.key = key
	return nil
}

func (k *keyValue) Type() string { return "string" }

// sortFlags carries --sort/--order for commands that print or export an ordered list.
type sortFlags struct {
	key   *keyValue
	order *enumValue
}

func addSortFlags(fs *pflag.FlagSet) *sortFlags {
	sf := &sortFlags{
		key:   &keyValue{},
		order: newEnum("", string(sorter.Ascending), string(sorter.Descending)),
	}
	fs.Var(sf.key, "sort", "sort key (title|created_at|likes_count); selecting the active key flips the direction")
	fs.Var(sf.order, "order", "force the direction (asc|desc)")
	return sf
}

// spec starts from the default order and applies --sort as a toggle, then --order.
func (sf *sortFlags) spec() sorter.Spec {
	spec := sorter.DefaultSpec
	if sf.key.key != "" {
		spec = spec.Toggle(sf.key.key)
	}
	if sf.order.value != "" {
		spec.Direction = sorter.Direction(sf.order.value)
	}
	return spec
}
