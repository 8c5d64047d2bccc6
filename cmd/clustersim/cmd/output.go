package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// resolveFormat picks the output format: the flag if set, else the
// extension of out, else JSON.
func resolveFormat(flag, out string) (string, error) {
	format := strings.ToLower(flag)
	if format == "" {
		switch strings.ToLower(filepath.Ext(out)) {
		case ".yaml", ".yml":
			format = formatYAML
		default:
			format = formatJSON
		}
	}
	if format != formatJSON && format != formatYAML {
		return "", fmt.Errorf("output format %q: want json or yaml", flag)
	}
	return format, nil
}

func encode(w io.Writer, format string, doc any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// writeDocument encodes doc to out, or to stdout when out is empty.
func writeDocument(stdout io.Writer, out, formatFlag string, doc any) error {
	format, err := resolveFormat(formatFlag, out)
	if err != nil {
		return err
	}
	if out == "" {
		return encode(stdout, format, doc)
	}

	f, err := os.Create(filepath.Clean(out))
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := encode(f, format, doc); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}
