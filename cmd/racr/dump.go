package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	racrparser "github.com/bitkis/racr-parser"
	"github.com/bitkis/racr-parser/racr"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Parse a racr file and print its AST as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	items, err := racrparser.ParseContent(src)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, itemJSON(item))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// itemJSON flattens the sealed AST interfaces into kind-tagged maps, since
// encoding/json cannot tag interface variants on its own.
func itemJSON(item racr.Item) map[string]any {
	switch v := item.(type) {
	case racr.Module:
		m := map[string]any{"kind": "module", "ident": v.Ident}
		if v.Content != nil {
			content := make([]any, 0, len(v.Content))
			for _, sub := range v.Content {
				content = append(content, itemJSON(sub))
			}
			m["content"] = content
		}
		return m

	case racr.Use:
		return map[string]any{"kind": "use", "tree": racr.UseTreeString(v.Tree)}

	case racr.RegisterDefinition:
		fields := make([]any, 0, len(v.Fields))
		for _, f := range v.Fields {
			field := map[string]any{
				"ident":     f.Ident,
				"bit_start": f.BitStart,
				"bit_end":   f.BitEnd,
			}
			if f.Description != "" {
				field["description"] = f.Description
			}
			if f.Access != racr.AccessUnspecified {
				field["access"] = f.Access.String()
			}
			fields = append(fields, field)
		}
		m := map[string]any{
			"kind":   "register",
			"ident":  v.Ident,
			"access": v.Access.String(),
			"size":   v.Size,
			"fields": fields,
		}
		if v.Description != "" {
			m["description"] = v.Description
		}
		if v.ResetValue != nil {
			m["reset_value"] = *v.ResetValue
		}
		return m

	case racr.PeripheralDefinition:
		slots := make([]any, 0, len(v.Registers))
		for _, slot := range v.Registers {
			slots = append(slots, slotJSON(slot))
		}
		m := map[string]any{
			"kind":      "peripheral",
			"ident":     v.Ident,
			"registers": slots,
		}
		if v.Description != "" {
			m["description"] = v.Description
		}
		return m

	case racr.DeviceDefinition:
		peripherals := make([]any, 0, len(v.Peripherals))
		for _, p := range v.Peripherals {
			peripherals = append(peripherals, map[string]any{
				"ident":   p.Ident,
				"path":    p.Path.String(),
				"address": p.Address,
			})
		}
		m := map[string]any{
			"kind":        "device",
			"ident":       v.Ident,
			"peripherals": peripherals,
		}
		if v.Description != "" {
			m["description"] = v.Description
		}
		return m

	default:
		return map[string]any{"kind": "unknown"}
	}
}

func slotJSON(slot racr.RegisterSlot) map[string]any {
	switch s := slot.(type) {
	case racr.SingleSlot:
		return map[string]any{
			"ident":  s.Instance.Ident,
			"type":   typeJSON(s.Instance.Type),
			"offset": s.Offset,
		}
	case racr.OverloadedSlot:
		alts := make([]any, 0, len(s.Alternatives))
		for _, alt := range s.Alternatives {
			alts = append(alts, map[string]any{
				"ident": alt.Ident,
				"type":  typeJSON(alt.Type),
			})
		}
		return map[string]any{
			"alternatives": alts,
			"offset":       s.Offset,
		}
	default:
		return map[string]any{}
	}
}

func typeJSON(ty racr.RegisterType) map[string]any {
	switch t := ty.(type) {
	case racr.SingleType:
		return map[string]any{"path": t.Path.String()}
	case racr.ArrayType:
		return map[string]any{"path": t.Path.String(), "size": t.Size}
	default:
		return map[string]any{}
	}
}
